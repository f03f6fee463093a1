package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.Equal(t, 15, cfg.Crawl.MaxSections)
	assert.Equal(t, 20, cfg.Crawl.MaxSubsections)
	assert.True(t, cfg.Crawl.RespectRobots)
	assert.Equal(t, 100, cfg.Extract.MinChars)
	assert.Equal(t, 50000, cfg.Extract.MaxTextChars)
	assert.Equal(t, 300, cfg.Extract.OCRDPI)
	assert.Equal(t, "fra+eng", cfg.Extract.OCRLanguages)
	assert.Equal(t, 5, cfg.Analysis.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Analysis.InitialBackoff)
	assert.Equal(t, 8000, cfg.Analysis.MaxChars)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte("crawl:\n  concurrency: 2\n  max_sections: 5\nextract:\n  ocr_dpi: 400\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("MUNIWATCH_CRAWL_CONCURRENCY", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Crawl.Concurrency, "env overrides file")
	assert.Equal(t, 5, cfg.Crawl.MaxSections)
	assert.Equal(t, 400, cfg.Extract.OCRDPI)
	assert.Equal(t, 20, cfg.Crawl.MaxSubsections, "default kept")
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	err := InitLogger(LogConfig{Level: "loud", Format: "console"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
