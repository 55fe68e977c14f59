// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download streams dataset archives from Figshare into memory or
// a temporary file.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/starrydata/internal/archive"
	"github.com/pdiddy/starrydata/internal/httputil"
	"github.com/pdiddy/starrydata/pkg/types"
)

// chunkSize is the read size of the streamed transfer.
const chunkSize = 1024

// ProgressFunc receives the bytes read so far and the declared total.
// It is called after every chunk, only when the total is known.
type ProgressFunc func(read, total int64)

// Fetcher downloads archives.
type Fetcher struct {
	client           *http.Client
	userAgent        string
	logger           *slog.Logger
	progress         ProgressFunc
	spool            bool
	tempDir          string
	insecureFallback bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) { f.progress = fn }
}

// WithSpool buffers archives in a temporary file under dir (os.TempDir
// when empty) instead of memory.
func WithSpool(dir string) Option {
	return func(f *Fetcher) {
		f.spool = true
		f.tempDir = dir
	}
}

// WithInsecureFallback enables or disables the single retry without
// certificate verification. It is enabled by default.
func WithInsecureFallback(enabled bool) Option {
	return func(f *Fetcher) { f.insecureFallback = enabled }
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:        types.DefaultUserAgent,
		logger:           slog.New(slog.DiscardHandler),
		insecureFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httputil.NewClient(types.HTTPConfig{})
	}
	return f
}

// NewFetcherFromConfig builds a Fetcher from cfg.
func NewFetcherFromConfig(cfg types.DownloadConfig, opts ...Option) *Fetcher {
	base := []Option{
		WithHTTPClient(httputil.NewClient(cfg.HTTPConfig)),
		WithInsecureFallback(!cfg.DisableInsecureFallback),
	}
	if cfg.UserAgent != "" {
		base = append(base, WithUserAgent(cfg.UserAgent))
	}
	if cfg.Spool {
		base = append(base, WithSpool(cfg.TempDir))
	}
	return NewFetcher(append(base, opts...)...)
}

// Fetch downloads url and opens it as an archive. The caller must Close
// the archive; for spooled downloads that removes the temporary file.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*archive.Archive, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if f.spool {
		return f.fetchToTemp(url, resp)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	n, err := f.copyChunks(&buf, resp.Body, resp.ContentLength)
	if err != nil {
		return nil, &types.TransportError{Op: "download", URL: url, Err: err}
	}
	f.logger.Info("downloaded archive", "url", url, "bytes", n)
	return archive.FromBytes(buf.Bytes())
}

func (f *Fetcher) fetchToTemp(url string, resp *http.Response) (*archive.Archive, error) {
	tmp, err := os.CreateTemp(f.tempDir, "starrydata-*.zip")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := f.copyChunks(tmp, resp.Body, resp.ContentLength)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return nil, &types.TransportError{Op: "download", URL: url, Err: copyErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	f.logger.Info("downloaded archive", "url", url, "bytes", n, "spool", tmpPath)
	return archive.OpenTemp(tmpPath)
}

// SaveTo downloads url to destPath through a temporary file in the same
// directory, renamed into place on success.
func (f *Fetcher) SaveTo(ctx context.Context, url, destPath string) (int64, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".starrydata-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := f.copyChunks(tmp, resp.Body, resp.ContentLength)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, &types.TransportError{Op: "download", URL: url, Err: copyErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}

	f.logger.Info("saved archive", "url", url, "path", destPath, "bytes", n)
	return n, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/zip, */*")

	f.logger.Debug("downloading archive", "url", url)
	resp, err := httputil.Do(ctx, f.client, req, f.insecureFallback, f.logger)
	if err != nil {
		return nil, &types.TransportError{Op: "download", URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &types.TransportError{Op: "download", URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// copyChunks copies src to dst in chunkSize pieces, reporting progress when
// total is known. Only io.EOF ends the stream; any other read error,
// including a body cut short mid-transfer, is returned.
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader, total int64) (int64, error) {
	buf := make([]byte, chunkSize)
	var read int64
	for {
		n, err := fillChunk(src, buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return read, werr
			}
			read += int64(n)
			if f.progress != nil && total > 0 {
				f.progress(read, total)
			}
		}
		if err == io.EOF {
			if total > 0 && read < total {
				return read, fmt.Errorf("transfer ended after %d of %d bytes", read, total)
			}
			return read, nil
		}
		if err != nil {
			return read, err
		}
	}
}

// fillChunk reads into buf until it is full or src fails. Unlike
// io.ReadFull it reports the reader's own error untouched, so a clean
// io.EOF stays distinguishable from io.ErrUnexpectedEOF.
func fillChunk(src io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// LogProgress returns a ProgressFunc that logs at every tenth of the transfer.
func LogProgress(logger *slog.Logger) ProgressFunc {
	last := int64(-1)
	return func(read, total int64) {
		step := read * 10 / total
		if step == last {
			return
		}
		last = step
		logger.Info("download progress", "percent", step*10, "bytes", read, "total", total)
	}
}
