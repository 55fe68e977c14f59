// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive opens a downloaded Starrydata zip and extracts members
// by exact name.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/pdiddy/starrydata/pkg/types"
)

// Archive is an opened zip container. It owns its backing storage: Close
// releases it and, for spooled downloads, removes the temporary file.
type Archive struct {
	zr     *zip.Reader
	size   int64
	path   string
	closer func() error
}

// Member is one extracted archive file.
type Member struct {
	Name string
	Data []byte
}

// New opens a zip container read from r.
func New(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &types.DecodeError{Source: "archive", Err: err}
	}
	return &Archive{zr: zr, size: size}, nil
}

// FromBytes opens an in-memory container.
func FromBytes(data []byte) (*Archive, error) {
	return New(bytes.NewReader(data), int64(len(data)))
}

// Open opens a local archive file. The file is closed but never removed by Close.
func Open(filename string) (*Archive, error) {
	return openFile(filename, false)
}

// OpenTemp opens a spooled archive file that Close removes.
func OpenTemp(filename string) (*Archive, error) {
	return openFile(filename, true)
}

func openFile(filename string, remove bool) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		if remove {
			os.Remove(filename)
		}
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	cleanup := func() error {
		err := f.Close()
		if remove {
			if rmErr := os.Remove(filename); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
				err = rmErr
			}
		}
		return err
	}

	info, err := f.Stat()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	a, err := New(f, info.Size())
	if err != nil {
		cleanup()
		return nil, err
	}
	a.path = filename
	a.closer = cleanup
	return a, nil
}

// Path returns the backing file, or "" for in-memory archives.
func (a *Archive) Path() string { return a.path }

// Size returns the container size in bytes.
func (a *Archive) Size() int64 { return a.size }

// Close releases the archive. It is safe to call more than once.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	c := a.closer
	a.closer = nil
	return c()
}

// Members lists member names in central-directory order.
func (a *Archive) Members() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether the archive contains name exactly.
func (a *Archive) Has(name string) bool {
	return a.lookup(name) != nil
}

func (a *Archive) lookup(name string) *zip.File {
	for _, f := range a.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Extract returns the contents of the member named exactly name.
func (a *Archive) Extract(name string) ([]byte, error) {
	f := a.lookup(name)
	if f == nil {
		return nil, &types.MemberNotFoundError{Expected: []string{name}, Available: a.Members()}
	}

	rc, err := f.Open()
	if err != nil {
		return nil, &types.DecodeError{Source: name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &types.DecodeError{Source: name, Err: err}
	}
	return data, nil
}

// ExtractKind extracts the table for kind under whichever naming
// convention the archive uses. The current starrydata_* name wins when
// both are present.
func (a *Archive) ExtractKind(kind types.Kind) (*Member, error) {
	names := kind.MemberNames()
	for _, name := range names {
		if !a.Has(name) {
			continue
		}
		data, err := a.Extract(name)
		if err != nil {
			return nil, err
		}
		return &Member{Name: name, Data: data}, nil
	}
	return nil, &types.MemberNotFoundError{Kind: kind, Expected: names, Available: a.Members()}
}

// Timestamp returns the trimmed contents of db_snapshot.txt.
func (a *Archive) Timestamp() (string, error) {
	data, err := a.Extract(types.SnapshotMember)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
