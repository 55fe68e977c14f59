// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/starrydata/pkg/types"
)

func sampleArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"all_samples.csv": "sid,composition\n1,Bi2Te3\n2,PbTe\n",
		"db_snapshot.txt": "2020-01-01T00:00:00Z\n",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func archiveServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "starrydata-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFetch_InMemory(t *testing.T) {
	data := sampleArchive(t)
	ts := archiveServer(t, data)

	var calls int
	var lastRead, lastTotal int64
	f := NewFetcher(
		WithHTTPClient(ts.Client()),
		WithUserAgent("starrydata-test"),
		WithProgress(func(read, total int64) {
			calls++
			lastRead, lastTotal = read, total
		}),
	)

	a, err := f.Fetch(context.Background(), ts.URL+"/files/1")
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "", a.Path())
	assert.Equal(t, int64(len(data)), a.Size())
	assert.True(t, a.Has("all_samples.csv"))

	assert.Equal(t, (len(data)+chunkSize-1)/chunkSize, calls, "one callback per 1024-byte chunk")
	assert.Equal(t, int64(len(data)), lastRead)
	assert.Equal(t, int64(len(data)), lastTotal)
}

func TestFetch_NoProgressWithoutContentLength(t *testing.T) {
	data := sampleArchive(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Flushing before writing forces chunked encoding, hiding the length.
		w.(http.Flusher).Flush()
		w.Write(data)
	}))
	defer ts.Close()

	called := false
	f := NewFetcher(WithHTTPClient(ts.Client()), WithProgress(func(int64, int64) { called = true }))

	a, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	defer a.Close()
	assert.False(t, called)
}

func TestFetch_ConnectionDroppedMidBody(t *testing.T) {
	data := sampleArchive(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, rw, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		half := data[:len(data)/2]
		fmt.Fprintf(rw, "HTTP/1.1 200 OK\r\nContent-Type: application/zip\r\nTransfer-Encoding: chunked\r\n\r\n%x\r\n", len(half))
		rw.Write(half)
		rw.WriteString("\r\n")
		rw.Flush()
	}))
	defer ts.Close()

	for _, spool := range []bool{false, true} {
		opts := []Option{WithHTTPClient(ts.Client())}
		if spool {
			opts = append(opts, WithSpool(t.TempDir()))
		}
		_, err := NewFetcher(opts...).Fetch(context.Background(), ts.URL)
		require.Error(t, err, "spool=%v", spool)
		assert.True(t, errors.Is(err, types.ErrTransport), "spool=%v: %v", spool, err)
		assert.False(t, errors.Is(err, types.ErrDecode), "spool=%v: %v", spool, err)
	}
}

func TestFetch_SpoolRemovesTempFile(t *testing.T) {
	ts := archiveServer(t, sampleArchive(t))
	dir := t.TempDir()

	f := NewFetcher(WithHTTPClient(ts.Client()), WithUserAgent("starrydata-test"), WithSpool(dir))
	a, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	require.NotEmpty(t, a.Path())
	assert.Equal(t, dir, filepath.Dir(a.Path()))
	ts2, err := a.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T00:00:00Z", ts2)

	require.NoError(t, a.Close())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spooled archive must be removed on Close")
}

func TestFetch_SpoolRemovesTempFileOnBadArchive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not a zip"))
	}))
	defer ts.Close()
	dir := t.TempDir()

	_, err := NewFetcher(WithHTTPClient(ts.Client()), WithSpool(dir)).Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDecode))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewFetcher(WithHTTPClient(ts.Client())).Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var te *types.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.Equal(t, ts.URL, te.URL)
}

func TestFetch_TLSFallback(t *testing.T) {
	data := sampleArchive(t)
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(data)
	}))
	defer ts.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	a, err := NewFetcher(WithHTTPClient(&http.Client{}), WithLogger(logger)).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	defer a.Close()
	assert.Contains(t, logs.String(), "level=WARN")

	_, err = NewFetcher(WithHTTPClient(&http.Client{}), WithInsecureFallback(false)).Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTransport))
}

func TestSaveTo(t *testing.T) {
	data := sampleArchive(t)
	ts := archiveServer(t, data)
	dest := filepath.Join(t.TempDir(), "archives", "20200101.zip")

	n, err := NewFetcher(WithHTTPClient(ts.Client()), WithUserAgent("starrydata-test")).SaveTo(context.Background(), ts.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLogProgress(t *testing.T) {
	var logs bytes.Buffer
	progress := LogProgress(slog.New(slog.NewTextHandler(&logs, nil)))
	for read := int64(1); read <= 100; read++ {
		progress(read, 100)
	}
	assert.Equal(t, 11, bytes.Count(logs.Bytes(), []byte("download progress")))
}

func TestNewFetcherFromConfig(t *testing.T) {
	f := NewFetcherFromConfig(types.DownloadConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "ua", DisableInsecureFallback: true},
		Spool:      true,
		TempDir:    "/tmp/x",
	})
	assert.Equal(t, "ua", f.userAgent)
	assert.False(t, f.insecureFallback)
	assert.True(t, f.spool)
	assert.Equal(t, "/tmp/x", f.tempDir)
}
