// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package starrydata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/starrydata/pkg/types"
)

// Sidecar is the metadata written next to a saved archive as <archive>.yaml.
type Sidecar struct {
	Version types.Version `json:"version" yaml:"version"`
	File    types.File    `json:"file" yaml:"file"`
	SavedAt time.Time     `json:"saved_at" yaml:"saved_at"`
}

// SidecarPath returns the metadata path for an archive.
func SidecarPath(zipPath string) string { return zipPath + ".yaml" }

// WriteSidecar writes meta next to zipPath.
func WriteSidecar(zipPath string, meta Sidecar) error {
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling sidecar: %w", err)
	}
	return os.WriteFile(SidecarPath(zipPath), data, 0o644)
}

// ReadSidecar reads the metadata written next to zipPath.
func ReadSidecar(zipPath string) (*Sidecar, error) {
	data, err := os.ReadFile(SidecarPath(zipPath))
	if err != nil {
		return nil, err
	}
	var meta Sidecar
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing sidecar: %w", err)
	}
	return &meta, nil
}

// Save resolves a version and saves its archive under dir as
// <YYYYMMDD>.zip (the Figshare file name when the date is unknown),
// together with a sidecar. It returns the archive path.
func Save(ctx context.Context, opts Options, dir string) (string, *types.Version, error) {
	logger := opts.logger()

	version, file, err := opts.catalogClient().ResolveFile(ctx, opts.Date)
	if err != nil {
		return "", nil, err
	}

	name := file.Name
	if stamp := version.Stamp(); stamp != "" {
		name = stamp + ".zip"
	}
	if name == "" {
		name = fmt.Sprintf("%d.zip", version.ID)
	}
	dest := filepath.Join(dir, name)

	if _, err := opts.fetcher().SaveTo(ctx, file.DownloadURL, dest); err != nil {
		return "", nil, err
	}
	if err := WriteSidecar(dest, Sidecar{Version: *version, File: file, SavedAt: time.Now().UTC()}); err != nil {
		return "", nil, fmt.Errorf("writing sidecar for %s: %w", dest, err)
	}

	logger.Info("saved dataset archive", "path", dest, "published_date", version.PublishedDate)
	return dest, version, nil
}
