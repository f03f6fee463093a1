package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportName(t *testing.T) {
	at := time.Date(2026, 3, 20, 10, 4, 5, 0, time.UTC)
	assert.Equal(t, "crawl_www_ville-riom_fr_20260320_100405", ReportName("https://www.ville-riom.fr/accueil", at))
	assert.Equal(t, "crawl_mairie_fr_20260320_100405", ReportName("mairie.fr", at))

	paris := time.FixedZone("CET", 3600)
	assert.Equal(t, "crawl_a_fr_20260320_100405", ReportName("http://a.fr:8080", at.In(paris)))
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := New(dir)
	require.NoError(t, err)

	path, err := w.WriteReport("https://ville.fr", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), []byte("# Ville"), ".md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "crawl_ville_fr_20260102_030405.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Ville", string(data))
}

func TestWriteRun(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteRun("1234-abcd", map[string]any{"campaign": "biomasse"})
	require.NoError(t, err)
	assert.Equal(t, "run_1234-abcd.json", filepath.Base(path))

	var got map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "biomasse", got["campaign"])
}
