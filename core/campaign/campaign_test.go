package campaign

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/muniwatch/core"
)

const validCampaign = `{
  "name": "Chaufferies test",
  "keywords": {
    "priority": ["chaufferie", "biomasse"],
    "secondary": ["granulés"],
    "budget": ["subvention"]
  },
  "zones": {"departments": ["63"]},
  "scrapingParameters": {"requestDelaySeconds": 1.5, "timeoutSeconds": 30, "minConfidence": 3},
  "aiScoreThreshold": 7,
  "sites": [
    {"name": "Riom", "department": "63", "url": "https://www.ville-riom.fr"},
    {"name": "Vichy", "department": "03", "url": "https://www.ville-vichy.fr"},
    {"name": "Sans dept", "url": "https://example.fr"}
  ]
}`

func TestParse_Valid(t *testing.T) {
	c, err := Parse([]byte(validCampaign))
	require.NoError(t, err)

	assert.Equal(t, "Chaufferies test", c.Name)
	assert.Equal(t, []string{"chaufferie", "biomasse"}, c.Keywords.Priority)
	assert.Equal(t, 3, c.Threshold())
	assert.Equal(t, 1500, int(c.Scraping.RequestDelay().Milliseconds()))
	assert.Equal(t, 30, int(c.Scraping.Timeout().Seconds()))
	assert.Equal(t, DefaultWindowDays, c.WindowDays)
	assert.True(t, c.Signals.Budgetary)
	assert.True(t, c.Signals.Reflection)
	assert.True(t, c.Signals.Consultation)
	assert.Equal(t, core.MaturityReflexion, c.MaturityFloor)
	require.Len(t, c.Sites, 3)

	targets := c.TargetSites()
	require.Len(t, targets, 2)
	assert.Equal(t, "Riom", targets[0].Name)
	assert.Equal(t, "Sans dept", targets[1].Name)
}

func TestParse_EmptyKeywordSetsAllowed(t *testing.T) {
	doc := strings.Replace(validCampaign, `"priority": ["chaufferie", "biomasse"]`, `"priority": []`, 1)
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, c.Keywords.Priority)
}

func TestParse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		field  string
	}{
		{"name", `"name": "Chaufferies test",`, "name"},
		{"ai threshold", `"aiScoreThreshold": 7,`, "aiScoreThreshold"},
		{"zones", `"zones": {"departments": ["63"]},`, "zones"},
		{"budget keywords", `,
    "budget": ["subvention"]`, "keywords.budget"},
		{"min confidence", `, "minConfidence": 3`, "scrapingParameters.minConfidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validCampaign, tt.remove, "", 1)
			require.NotEqual(t, validCampaign, doc, "fixture edit must apply")

			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParse_InvalidValues(t *testing.T) {
	tests := []struct {
		name, from, to, field string
	}{
		{"negative threshold", `"minConfidence": 3`, `"minConfidence": -1`, "scrapingParameters.minConfidence"},
		{"zero window", `"aiScoreThreshold": 7,`, `"aiScoreThreshold": 7, "windowDays": 0,`, "windowDays"},
		{"bad floor", `"aiScoreThreshold": 7,`, `"aiScoreThreshold": 7, "maturityFloor": "someday",`, "maturityFloor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(strings.Replace(validCampaign, tt.from, tt.to, 1)))
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"name": `))
	assert.True(t, IsConfigurationError(err))
}

func TestParse_SignalOverrides(t *testing.T) {
	doc := strings.Replace(validCampaign, `"aiScoreThreshold": 7,`,
		`"aiScoreThreshold": 7, "signals": {"reflection": false}, "maturityFloor": "etude",
		 "signalPhrases": {"consultation": ["avis de marché"]},`, 1)
	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.False(t, c.Signals.Reflection)
	assert.True(t, c.Signals.Consultation)
	assert.Equal(t, core.MaturityEtude, c.MaturityFloor)

	phrases := c.EffectiveSignalPhrases()
	assert.Equal(t, []string{"avis de marché"}, phrases.Consultation)
	assert.Equal(t, DefaultReflectionPhrases, phrases.Reflection)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.json")
	c, ok := Preset("pompes_chaleur")
	require.True(t, ok)

	require.NoError(t, Save(path, c))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, c.Name, loaded.Name)
	assert.Equal(t, c.Keywords, loaded.Keywords)
	assert.Equal(t, c.WindowDays, loaded.WindowDays)
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	assert.Len(t, names, 6)
	assert.Contains(t, names, "chaufferies_biomasse")

	_, ok := Preset("nope")
	assert.False(t, ok)

	for _, name := range names {
		c, ok := Preset(name)
		require.True(t, ok)
		assert.NoError(t, c.Validate(), name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
}
