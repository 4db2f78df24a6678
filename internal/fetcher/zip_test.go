package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"exports_2025_01.csv": "hs,qty\n690721,1000\n",
		"imports_2025_01.csv": "hs,qty\n690721,900\n",
	})

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	content, err := os.ReadFile(filepath.Join(dest, "exports_2025_01.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "690721")
}

func TestExtractZIPSingle(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"monthly.csv": "data"})

	path, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "monthly.csv", filepath.Base(path))
}

func TestExtractZIPSingle_RejectsMultipleFiles(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"a.csv": "1", "b.csv": "2"})

	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIP_RejectsEscapingPaths(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"../evil.csv": "x"})

	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}
