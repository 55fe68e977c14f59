// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Figshare defaults for the Starrydata project.
const (
	DefaultAPIURL       = "https://api.figshare.com/v2"
	DefaultProjectID    = 155129
	DefaultSearchSuffix = ".zip"
	DefaultPageSize     = 1000
	DefaultUserAgent    = "starrydata/0.1"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "starrydata/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// DisableInsecureFallback turns off the single retry without certificate
	// verification that follows a TLS verification failure.
	DisableInsecureFallback bool `json:"disable_insecure_fallback" yaml:"disable_insecure_fallback"`
}

// CatalogConfig holds settings for resolving dataset versions on Figshare.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the Figshare API base (default https://api.figshare.com/v2).
	APIURL string `json:"api_url" yaml:"api_url"`

	// ProjectID is the Figshare project that publishes the archives (default 155129).
	ProjectID int `json:"project_id" yaml:"project_id"`

	// SearchSuffix is appended to the separator-free date to form the
	// search_for token of a dated lookup (default ".zip").
	SearchSuffix string `json:"search_suffix" yaml:"search_suffix"`

	// PageSize is the page_size of the single article listing request (default 1000).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c CatalogConfig) WithDefaults() CatalogConfig {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ProjectID == 0 {
		c.ProjectID = DefaultProjectID
	}
	if c.SearchSuffix == "" {
		c.SearchSuffix = DefaultSearchSuffix
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// DownloadConfig holds settings for fetching archives.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// Spool buffers the archive in a temporary file instead of memory.
	Spool bool `json:"spool" yaml:"spool"`

	// TempDir is where spooled archives are written. Empty uses os.TempDir.
	TempDir string `json:"temp_dir" yaml:"temp_dir"`
}

// StoreConfig holds settings for the SQLite snapshot store.
type StoreConfig struct {
	// DBPath is the SQLite database file (default "starrydata.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LogConfig selects the level and encoding of the structured logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// Config groups all settings.
type Config struct {
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Log      LogConfig      `json:"log" yaml:"log"`
}
