// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/starrydata/pkg/types"
)

// buildZip writes members in the given order.
func buildZip(t *testing.T, members ...string) []byte {
	t.Helper()
	require.Zero(t, len(members)%2, "members are name/content pairs")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < len(members); i += 2 {
		w, err := zw.Create(members[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(members[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	a, err := FromBytes(buildZip(t,
		"all_samples.csv", "sid,composition\n1,Bi2Te3\n",
		"db_snapshot.txt", "2020-01-01 00:00:00\n",
	))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"all_samples.csv", "db_snapshot.txt"}, a.Members())

	data, err := a.Extract("all_samples.csv")
	require.NoError(t, err)
	assert.Equal(t, "sid,composition\n1,Bi2Te3\n", string(data))

	ts, err := a.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01 00:00:00", ts)
}

func TestExtract_MissingMember(t *testing.T) {
	a, err := FromBytes(buildZip(t, "all_samples.csv", "a\n1\n"))
	require.NoError(t, err)

	_, err = a.Extract("all_curves.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMemberNotFound))
	assert.Contains(t, err.Error(), "all_curves.csv")

	var mnf *types.MemberNotFoundError
	require.True(t, errors.As(err, &mnf))
	assert.Equal(t, []string{"all_curves.csv"}, mnf.Expected)
	assert.Equal(t, []string{"all_samples.csv"}, mnf.Available)
}

func TestExtract_NameMatchIsExact(t *testing.T) {
	a, err := FromBytes(buildZip(t, "data/all_samples.csv", "a\n1\n"))
	require.NoError(t, err)

	assert.False(t, a.Has("all_samples.csv"))
	_, err = a.ExtractKind(types.KindSamples)
	assert.True(t, errors.Is(err, types.ErrMemberNotFound))
}

func TestExtractKind(t *testing.T) {
	tests := []struct {
		name     string
		members  []string
		kind     types.Kind
		wantName string
	}{
		{
			name:     "legacy json papers",
			members:  []string{"all_papers.json", `[{"SID":1}]`},
			kind:     types.KindPapers,
			wantName: "all_papers.json",
		},
		{
			name:     "current csv papers",
			members:  []string{"starrydata_papers.csv", "SID\n1\n"},
			kind:     types.KindPapers,
			wantName: "starrydata_papers.csv",
		},
		{
			name:     "current preferred over legacy",
			members:  []string{"all_curves.csv", "x\n1\n", "starrydata_curves.csv", "y\n2\n"},
			kind:     types.KindCurves,
			wantName: "starrydata_curves.csv",
		},
		{
			name:     "legacy samples",
			members:  []string{"all_samples.csv", "sid\n1\n"},
			kind:     types.KindSamples,
			wantName: "all_samples.csv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := FromBytes(buildZip(t, tt.members...))
			require.NoError(t, err)

			m, err := a.ExtractKind(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, m.Name)
			assert.NotEmpty(t, m.Data)
		})
	}
}

func TestExtractKind_NeitherConvention(t *testing.T) {
	a, err := FromBytes(buildZip(t, "db_snapshot.txt", "2024-05-10"))
	require.NoError(t, err)

	_, err = a.ExtractKind(types.KindPapers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starrydata_papers.csv")
	assert.Contains(t, err.Error(), "all_papers.json")
	assert.Contains(t, err.Error(), "db_snapshot.txt")
}

func TestFromBytes_NotAZip(t *testing.T) {
	_, err := FromBytes([]byte("<html>not found</html>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDecode))
}

func TestOpen_KeepsCallerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, "db_snapshot.txt", "ts"), 0o644))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, a.Path())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenTemp_RemovesFileOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, "db_snapshot.txt", "ts"), 0o644))

	a, err := OpenTemp(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenTemp_RemovesFileOnBadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.zip")
	require.NoError(t, os.WriteFile(path, []byte("truncated"), 0o644))

	_, err := OpenTemp(path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
