// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects one logical table of the dataset.
type Kind string

const (
	KindSamples Kind = "samples"
	KindPapers  Kind = "papers"
	KindCurves  Kind = "curves"
)

// Kinds lists every kind in archive order.
var Kinds = []Kind{KindSamples, KindPapers, KindCurves}

// SnapshotMember is the archive member holding the plain-text publication timestamp.
const SnapshotMember = "db_snapshot.txt"

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSamples, KindPapers, KindCurves:
		return k, nil
	}
	return "", fmt.Errorf("invalid dataset kind %q: must be samples, papers, or curves", s)
}

// MemberNames returns the archive member names that hold this kind, in
// preference order: the current starrydata_* convention first, then the
// legacy all_* convention.
func (k Kind) MemberNames() []string {
	legacy := "all_" + string(k) + ".csv"
	if k == KindPapers {
		legacy = "all_papers.json"
	}
	return []string{"starrydata_" + string(k) + ".csv", legacy}
}

func (k Kind) String() string { return string(k) }

// Version describes one published archive of the dataset (a Figshare article).
type Version struct {
	// ID is the Figshare article id.
	ID int64 `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`

	// PublishedDate is the ISO-8601 publication timestamp as returned by the API.
	// Timestamps are zero-padded, so string comparison orders them.
	PublishedDate string `json:"published_date" yaml:"published_date"`

	// URLPublicAPI is the article detail endpoint.
	URLPublicAPI string `json:"url_public_api" yaml:"url_public_api"`

	// Files is populated by the article detail endpoint and sometimes by search.
	Files []File `json:"files,omitempty" yaml:"files,omitempty"`
}

// File describes one downloadable file of a Version.
type File struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Size        int64  `json:"size" yaml:"size"`
	DownloadURL string `json:"download_url" yaml:"download_url"`
}

// PublishedTime parses PublishedDate. Both "2020-01-01" and
// "2020-01-01T00:00:00Z" forms are accepted.
func (v Version) PublishedTime() (time.Time, error) {
	s := strings.TrimSuffix(v.PublishedDate, "Z")
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing published date %q", v.PublishedDate)
}

// Stamp returns the publication date as YYYYMMDD, or "" when it cannot be parsed.
func (v Version) Stamp() string {
	t, err := v.PublishedTime()
	if err != nil {
		return ""
	}
	return t.Format("20060102")
}

// PrimaryFile returns the first file of the version. Every Starrydata
// article carries exactly one archive.
func (v Version) PrimaryFile() (File, error) {
	if len(v.Files) == 0 || v.Files[0].DownloadURL == "" {
		return File{}, &NotFoundError{What: fmt.Sprintf("download file for article %d", v.ID)}
	}
	return v.Files[0], nil
}
