// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/starrydata/internal/store"
	"github.com/pdiddy/starrydata/pkg/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "snapshot.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(types.LogConfig{Level: "warn", JSON: true}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "kind", "samples")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"kind":"samples"`)

	_, err = newLogger(types.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestTableWriter(t *testing.T) {
	for _, f := range []string{"table", "csv", "JSON", "yaml"} {
		w, err := tableWriter(f)
		require.NoError(t, err, f)
		assert.NotNil(t, w)
	}
	_, err := tableWriter("xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestFormatVersions(t *testing.T) {
	versions := []types.Version{
		{ID: 1, Title: "old", PublishedDate: "2023-02-01T09:00:00Z"},
		{ID: 2, Title: "new", PublishedDate: "2024-05-10T06:12:34Z"},
	}
	sortNewestFirst(versions)
	assert.Equal(t, int64(2), versions[0].ID)

	var buf bytes.Buffer
	require.NoError(t, formatVersions(&buf, versions, false))
	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines[2], "20240510")
	assert.Contains(t, buf.String(), "2 versions")

	buf.Reset()
	require.NoError(t, formatVersions(&buf, versions, true))
	var decoded []types.Version
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, versions, decoded)
}

func TestVersionsCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/155129/articles", r.URL.Path)
		w.Write([]byte(`[
			{"id": 101, "title": "Starrydata 2023-02", "published_date": "2023-02-01T09:00:00Z"},
			{"id": 103, "title": "Starrydata 2024-05", "published_date": "2024-05-10T06:12:34Z"}
		]`))
	}))
	defer ts.Close()

	out, err := execute(t, "versions", "--api-url", ts.URL, "--json")
	require.NoError(t, err)

	var versions []types.Version
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 2)
	assert.Equal(t, int64(103), versions[0].ID)
}

func TestLoadCommand_LocalZip(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"all_samples.csv": "sid,composition\n1,Bi2Te3\n2,PbTe\n",
	})

	out, err := execute(t, "load", "samples", "--zip", path, "--format", "csv", "--head", "1")
	require.NoError(t, err)
	assert.Equal(t, "sid,composition\n1,Bi2Te3\n", out)

	_, err = execute(t, "load", "figures", "--zip", path)
	assert.ErrorContains(t, err, "figures")
}

func TestTimestampCommand_LocalZip(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"db_snapshot.txt": "2020-01-01 00:00:00\n",
	})

	out, err := execute(t, "timestamp", "--zip", path)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01 00:00:00\n", out)
}

func TestStoreCommand_LocalZip(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"all_samples.csv":       "sid,composition\n1,Bi2Te3\n2,PbTe\n",
		"starrydata_papers.csv": "SID,title\n1,Thermoelectrics\n",
		"db_snapshot.txt":       "2020-01-01 00:00:00\n",
	})
	dbPath := filepath.Join(t.TempDir(), "sd.db")

	out, err := execute(t, "store", "--zip", path, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported into "+dbPath)
	assert.Contains(t, out, "samples  2 rows")

	out, err = execute(t, "store", "snapshots", "--db", dbPath, "--json")
	require.NoError(t, err)
	var snaps []store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, path, snaps[0].Source)
	assert.Equal(t, "2020-01-01 00:00:00", snaps[0].DBTimestamp)
	assert.Equal(t, map[string]int{"samples": 2, "papers": 1}, snaps[0].Rows)
}
