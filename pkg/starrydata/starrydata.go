// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package starrydata loads the Starrydata thermoelectric dataset published
// on Figshare. Load resolves a version (the latest, or the one published
// on a given date), downloads its archive, and exposes the samples,
// papers, and curves tables and the snapshot timestamp.
//
//	ds, err := starrydata.Load(ctx, starrydata.Options{Date: "2024-05-10"})
//	if err != nil {
//		return err
//	}
//	defer ds.Close()
//	samples, err := ds.Samples()
package starrydata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/starrydata/internal/archive"
	"github.com/pdiddy/starrydata/internal/catalog"
	"github.com/pdiddy/starrydata/internal/download"
	"github.com/pdiddy/starrydata/pkg/table"
	"github.com/pdiddy/starrydata/pkg/types"
)

// ProgressFunc receives bytes read and the declared total of a download.
type ProgressFunc = func(read, total int64)

// Options selects which archive to load and how.
type Options struct {
	// Date selects the version published on that date (YYYY-MM-DD or
	// YYYYMMDD). Empty selects the latest version.
	Date string

	// ZipPath loads a local archive instead of contacting Figshare. Date is
	// ignored when ZipPath is set.
	ZipPath string

	Catalog  types.CatalogConfig
	Download types.DownloadConfig

	// HTTPClient overrides the client built from the configs.
	HTTPClient *http.Client

	// Logger receives progress and diagnostics. Nil discards.
	Logger *slog.Logger

	// Progress is called per downloaded chunk when the size is known.
	Progress ProgressFunc
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o Options) catalogClient() *catalog.Client {
	return catalog.NewClient(o.HTTPClient, o.Catalog, o.Logger)
}

func (o Options) fetcher() *download.Fetcher {
	var opts []download.Option
	if o.HTTPClient != nil {
		opts = append(opts, download.WithHTTPClient(o.HTTPClient))
	}
	if o.Progress != nil {
		opts = append(opts, download.WithProgress(o.Progress))
	}
	opts = append(opts, download.WithLogger(o.Logger))
	return download.NewFetcherFromConfig(o.Download, opts...)
}

// Dataset is one opened archive. Tables are decoded on first access.
type Dataset struct {
	version *types.Version
	source  string
	archive *archive.Archive
	tables  map[types.Kind]*table.Table
	logger  *slog.Logger
}

// Load resolves and opens an archive according to opts. The caller must
// Close the returned Dataset.
func Load(ctx context.Context, opts Options) (*Dataset, error) {
	logger := opts.logger()

	if opts.ZipPath != "" {
		if opts.Date != "" {
			logger.Debug("ignoring date for local archive", "date", opts.Date, "zip_path", opts.ZipPath)
		}
		return openLocal(opts.ZipPath, logger)
	}

	version, file, err := opts.catalogClient().ResolveFile(ctx, opts.Date)
	if err != nil {
		return nil, err
	}

	logger.Info("fetching dataset archive",
		"article_id", version.ID, "published_date", version.PublishedDate,
		"file", file.Name, "size", file.Size)
	a, err := opts.fetcher().Fetch(ctx, file.DownloadURL)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		version: version,
		source:  file.DownloadURL,
		archive: a,
		tables:  make(map[types.Kind]*table.Table),
		logger:  logger,
	}, nil
}

func openLocal(path string, logger *slog.Logger) (*Dataset, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		source:  path,
		archive: a,
		tables:  make(map[types.Kind]*table.Table),
		logger:  logger,
	}
	if meta, err := ReadSidecar(path); err == nil {
		ds.version = &meta.Version
	} else {
		logger.Debug("no archive sidecar", "zip_path", path, "error", err)
	}
	return ds, nil
}

// LoadTable loads one table and releases the archive before returning.
func LoadTable(ctx context.Context, opts Options, kind types.Kind) (*table.Table, error) {
	ds, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return ds.Table(kind)
}

// Version returns the resolved catalog version, or nil for a local
// archive without a sidecar.
func (d *Dataset) Version() *types.Version { return d.version }

// Source returns the download URL or local path of the archive.
func (d *Dataset) Source() string { return d.source }

// Members lists the archive contents.
func (d *Dataset) Members() []string { return d.archive.Members() }

// Table decodes and returns the table for kind.
func (d *Dataset) Table(kind types.Kind) (*table.Table, error) {
	if t, ok := d.tables[kind]; ok {
		return t, nil
	}

	m, err := d.archive.ExtractKind(kind)
	if err != nil {
		return nil, err
	}
	t, err := table.DecodeMember(m.Name, m.Data)
	if err != nil {
		return nil, err
	}

	d.logger.Info("loaded table", "kind", kind, "member", m.Name, "rows", t.Len(), "columns", len(t.Columns()))
	d.tables[kind] = t
	return t, nil
}

// Samples returns the samples table.
func (d *Dataset) Samples() (*table.Table, error) { return d.Table(types.KindSamples) }

// Papers returns the papers table.
func (d *Dataset) Papers() (*table.Table, error) { return d.Table(types.KindPapers) }

// Curves returns the curves table.
func (d *Dataset) Curves() (*table.Table, error) { return d.Table(types.KindCurves) }

// Timestamp returns the snapshot timestamp stored in db_snapshot.txt.
func (d *Dataset) Timestamp() (string, error) { return d.archive.Timestamp() }

// Close releases the archive, removing any spooled temporary file.
func (d *Dataset) Close() error {
	if err := d.archive.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}
