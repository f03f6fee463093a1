package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
	"github.com/gaurav-prasanna/muniwatch/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Crawl:   config.CrawlConfig{UserAgent: "muniwatch-test", RespectRobots: true},
		Extract: config.ExtractConfig{MinChars: 20, MaxTextChars: 1000, DisableOCR: true},
		Cache:   config.CacheConfig{Path: filepath.Join(t.TempDir(), "cache.json")},
	}
}

func TestLoadCampaign(t *testing.T) {
	c, err := loadCampaign("", "")
	require.NoError(t, err)
	assert.Equal(t, campaign.Default().Name, c.Name)

	c, err = loadCampaign("", "pompes_chaleur")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Keywords.Priority)

	_, err = loadCampaign("", "nope")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "campagne.json")
	require.NoError(t, campaign.Save(path, campaign.Default()))
	c, err = loadCampaign(path, "pompes_chaleur")
	require.NoError(t, err)
	assert.Equal(t, campaign.Default().Name, c.Name, "file wins over preset")
}

func TestBuildReviewer(t *testing.T) {
	cfg = testConfig(t)

	r, err := buildReviewer(campaign.Default(), "")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = buildReviewer(campaign.Default(), "ollama")
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = buildReviewer(campaign.Default(), "groq")
	assert.Error(t, err, "missing API key")
}

func TestScoreLocalFile(t *testing.T) {
	cfg = testConfig(t)

	path := filepath.Join(t.TempDir(), "compte-rendu-2026-03-12.html")
	html := `<html><head><title>Conseil municipal</title></head><body><main>
<p>Le conseil municipal a voté le lancement d'une étude pour une chaufferie biomasse
alimentant l'école et la mairie. Une subvention sera demandée.</p></main></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	st, err := buildStack(campaign.Default())
	require.NoError(t, err)

	cand := core.Candidate{URL: path, Source: core.SourceDeliberation, FileName: filepath.Base(path)}
	doc, err := buildExtractor(fileFetcher{}).Extract(context.Background(), cand, path)
	require.NoError(t, err)
	assert.Equal(t, core.MethodHTML, doc.Method)

	ranked := st.crawler.Score(cand, doc)
	assert.True(t, ranked.Relevance.Pertinent)
	assert.Contains(t, ranked.Relevance.Matches.Priority, "chaufferie")
	assert.Equal(t, core.SourceDeliberation, ranked.Source)
}

func TestFileFetcher_Missing(t *testing.T) {
	_, err := fileFetcher{}.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
	_, err = fileFetcher{}.Head(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}

func TestRunScore_RejectsUnknownSource(t *testing.T) {
	prev := flagSource
	t.Cleanup(func() { flagSource = prev })

	flagSource = "deliberations"
	err := runScore(scoreCmd, []string{"https://ville.fr/conseil"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown --source "deliberations"`)
}
