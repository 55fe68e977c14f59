// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/starrydata/internal/download"
	"github.com/pdiddy/starrydata/pkg/starrydata"
	"github.com/pdiddy/starrydata/pkg/types"
)

const defaultTimeout = 60 * time.Second

func setDefaults() {
	viper.SetDefault("catalog.api_url", types.DefaultAPIURL)
	viper.SetDefault("catalog.project_id", types.DefaultProjectID)
	viper.SetDefault("catalog.search_suffix", types.DefaultSearchSuffix)
	viper.SetDefault("catalog.page_size", types.DefaultPageSize)
	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", types.DefaultUserAgent)
	viper.SetDefault("store.db_path", "starrydata.db")
	viper.SetDefault("log.level", "info")
}

// loadConfig assembles the typed configuration from viper. Zero values
// left by unset keys fall back to the package defaults downstream.
func loadConfig() types.Config {
	httpCfg := types.HTTPConfig{
		Timeout:                 viper.GetDuration("http.timeout"),
		UserAgent:               viper.GetString("http.user_agent"),
		DisableInsecureFallback: viper.GetBool("http.disable_insecure_fallback"),
	}
	if httpCfg.Timeout == 0 {
		httpCfg.Timeout = defaultTimeout
	}

	return types.Config{
		Catalog: types.CatalogConfig{
			HTTPConfig:   httpCfg,
			APIURL:       viper.GetString("catalog.api_url"),
			ProjectID:    viper.GetInt("catalog.project_id"),
			SearchSuffix: viper.GetString("catalog.search_suffix"),
			PageSize:     viper.GetInt("catalog.page_size"),
		},
		Download: types.DownloadConfig{
			HTTPConfig: httpCfg,
			Spool:      viper.GetBool("download.spool"),
			TempDir:    viper.GetString("download.temp_dir"),
		},
		Store: types.StoreConfig{
			DBPath: viper.GetString("store.db_path"),
		},
		Log: types.LogConfig{
			Level: viper.GetString("log.level"),
			JSON:  viper.GetBool("log.json"),
		},
	}
}

// newLogger builds the CLI logger. Logs go to w so that table output on
// stdout stays clean.
func newLogger(cfg types.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q: use debug, info, warn, or error", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// addSourceFlags registers --date and --zip on cmd.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "publication date of the version to load (YYYY-MM-DD); latest when empty")
	cmd.Flags().String("zip", "", "read a local archive instead of downloading")
}

// datasetOptions builds library options from the configuration and the
// --date/--zip flags when cmd defines them.
func datasetOptions(cmd *cobra.Command, cfg types.Config) starrydata.Options {
	opts := starrydata.Options{
		Catalog:  cfg.Catalog,
		Download: cfg.Download,
		Logger:   logger,
		Progress: download.LogProgress(logger),
	}
	if f := cmd.Flags().Lookup("date"); f != nil {
		opts.Date = f.Value.String()
	}
	if f := cmd.Flags().Lookup("zip"); f != nil {
		opts.ZipPath = f.Value.String()
	}
	return opts
}
