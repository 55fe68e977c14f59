// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog resolves published Starrydata archive versions through
// the Figshare REST API: the project article listing for the latest
// version, and article search for a dated one.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/starrydata/internal/httputil"
	"github.com/pdiddy/starrydata/pkg/types"
)

// Client queries the Figshare catalog for one project.
type Client struct {
	http   *http.Client
	cfg    types.CatalogConfig
	logger *slog.Logger
}

// NewClient returns a catalog client. A nil httpClient builds one from
// cfg.HTTPConfig; a nil logger discards.
func NewClient(httpClient *http.Client, cfg types.CatalogConfig, logger *slog.Logger) *Client {
	cfg = cfg.WithDefaults()
	if httpClient == nil {
		httpClient = httputil.NewClient(cfg.HTTPConfig)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{http: httpClient, cfg: cfg, logger: logger}
}

// Config returns the effective configuration with defaults applied.
func (c *Client) Config() types.CatalogConfig { return c.cfg }

// ListVersions returns every article published under the project, as
// returned by a single listing request.
func (c *Client) ListVersions(ctx context.Context) ([]types.Version, error) {
	reqURL := fmt.Sprintf("%s/projects/%d/articles?%s",
		strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.ProjectID,
		url.Values{"page_size": {fmt.Sprint(c.cfg.PageSize)}}.Encode())

	var versions []types.Version
	if err := c.getJSON(ctx, "listing articles", reqURL, &versions); err != nil {
		return nil, err
	}
	c.logger.Debug("listed project articles", "project_id", c.cfg.ProjectID, "count", len(versions))
	return versions, nil
}

// Latest returns the version with the greatest publication timestamp. A
// failed listing is reported as NotFoundError wrapping the TransportError,
// so callers can match either.
func (c *Client) Latest(ctx context.Context) (*types.Version, error) {
	versions, err := c.ListVersions(ctx)
	if err != nil {
		return nil, &types.NotFoundError{ProjectID: c.cfg.ProjectID, Err: err}
	}
	latest, ok := SelectLatest(versions)
	if !ok {
		return nil, &types.NotFoundError{ProjectID: c.cfg.ProjectID}
	}
	c.logger.Info("resolved latest dataset version",
		"article_id", latest.ID, "published_date", latest.PublishedDate)
	return &latest, nil
}

// SelectLatest returns the version with the maximum PublishedDate. Ties
// keep the earlier entry.
func SelectLatest(versions []types.Version) (types.Version, bool) {
	if len(versions) == 0 {
		return types.Version{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if v.PublishedDate > best.PublishedDate {
			best = v
		}
	}
	return best, true
}

// SearchToken turns a caller date ("2024-05-10", "2024/05/10", "20240510")
// into the search_for token: the eight date digits followed by suffix.
func SearchToken(date, suffix string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case '-', '/', '.', ' ', '_':
			return -1
		}
		return r
	}, strings.TrimSpace(date))

	if len(digits) != 8 {
		return "", fmt.Errorf("invalid date %q: want YYYYMMDD or YYYY-MM-DD", date)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid date %q: want YYYYMMDD or YYYY-MM-DD", date)
		}
	}
	return digits + suffix, nil
}

// searchRequest is the body of POST /articles/search.
type searchRequest struct {
	ProjectID int    `json:"project_id"`
	SearchFor string `json:"search_for"`
}

// SearchByDate returns the first article that matches date within the project.
func (c *Client) SearchByDate(ctx context.Context, date string) (*types.Version, error) {
	token, err := SearchToken(date, c.cfg.SearchSuffix)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{ProjectID: c.cfg.ProjectID, SearchFor: token})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	reqURL := strings.TrimRight(c.cfg.APIURL, "/") + "/articles/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var results []types.Version
	if err := c.doJSON(ctx, "searching articles", req, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &types.NotFoundError{ProjectID: c.cfg.ProjectID, Date: date}
	}

	v := results[0]
	c.logger.Info("resolved dataset version by date",
		"date", date, "search_for", token, "article_id", v.ID, "matches", len(results))
	return &v, nil
}

// Resolve selects the latest version when date is empty and the version
// published on date otherwise.
func (c *Client) Resolve(ctx context.Context, date string) (*types.Version, error) {
	if date == "" {
		return c.Latest(ctx)
	}
	return c.SearchByDate(ctx, date)
}

// Details fetches the full article record, including its files.
func (c *Client) Details(ctx context.Context, v *types.Version) (*types.Version, error) {
	if v.URLPublicAPI == "" {
		return nil, fmt.Errorf("article %d has no url_public_api", v.ID)
	}
	var detail types.Version
	if err := c.getJSON(ctx, "fetching article details", v.URLPublicAPI, &detail); err != nil {
		return nil, err
	}
	if detail.URLPublicAPI == "" {
		detail.URLPublicAPI = v.URLPublicAPI
	}
	return &detail, nil
}

// ResolveFile resolves a version and returns it with its archive file.
// Article details are fetched only when the resolved summary has no files.
func (c *Client) ResolveFile(ctx context.Context, date string) (*types.Version, types.File, error) {
	v, err := c.Resolve(ctx, date)
	if err != nil {
		return nil, types.File{}, err
	}
	if len(v.Files) == 0 {
		if v, err = c.Details(ctx, v); err != nil {
			return nil, types.File{}, err
		}
	}
	f, err := v.PrimaryFile()
	if err != nil {
		return nil, types.File{}, err
	}
	return v, f, nil
}

func (c *Client) getJSON(ctx context.Context, op, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.doJSON(ctx, op, req, out)
}

func (c *Client) doJSON(ctx context.Context, op string, req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.Do(ctx, c.http, req, !c.cfg.DisableInsecureFallback, c.logger)
	if err != nil {
		return &types.TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &types.TransportError{Op: op, URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &types.TransportError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}
