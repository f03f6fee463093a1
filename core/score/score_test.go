package score

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
)

func TestRelevance_BiomassProject(t *testing.T) {
	s := NewRelevanceScorer(campaign.Default())

	r := s.Score("Projet de chaufferie biomasse, budget 1,2 M€, subvention ADEME")

	assert.Equal(t, []string{"chaufferie", "biomasse"}, r.Matches.Priority)
	assert.Empty(t, r.Matches.Secondary)
	assert.Equal(t, []string{"budget", "subvention", "ademe"}, r.Matches.Budget)
	assert.Equal(t, 7, r.Score)
	assert.Equal(t, 2, r.Threshold)
	assert.True(t, r.Pertinent)
}

func TestRelevance_NoMatch(t *testing.T) {
	s := NewRelevanceScorer(campaign.Default())
	r := s.Score("Compte rendu de la fête du village et du marché de Noël")
	assert.Equal(t, 0, r.Score)
	assert.False(t, r.Pertinent)
	assert.Empty(t, r.Matches.All())
}

func TestRelevance_ThresholdBoundary(t *testing.T) {
	c := campaign.Default()
	c.Scraping.MinConfidence = 2
	s := NewRelevanceScorer(c)

	assert.True(t, s.Score("la chaufferie").Pertinent, "2 points meets threshold 2")
	assert.False(t, s.Score("des granulés").Pertinent, "1 point is below threshold 2")
}

func TestRelevance_Deterministic(t *testing.T) {
	text := "Chaufferie collective au bois énergie, plaquettes, fonds chaleur et CEE."
	a := NewRelevanceScorer(campaign.Default()).Score(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a, NewRelevanceScorer(campaign.Default()).Score(text))
	}
}

func TestRelevance_ThresholdMonotonic(t *testing.T) {
	texts := []string{
		"chaufferie biomasse subvention",
		"granulés",
		"réseau chaleur et budget",
		"rien à voir",
		"chaudière bois, bois énergie, chaleur renouvelable, ademe, cee",
	}
	prev := len(texts) + 1
	for threshold := 0; threshold <= 12; threshold++ {
		c := campaign.Default()
		c.Scraping.MinConfidence = threshold
		s := NewRelevanceScorer(c)

		count := 0
		for _, txt := range texts {
			if s.Score(txt).Pertinent {
				count++
			}
		}
		assert.LessOrEqual(t, count, prev, "threshold %d", threshold)
		prev = count
	}
}

func TestSignals_ConsultationWins(t *testing.T) {
	c := NewSignalClassifier(campaign.Default())

	r := c.Classify("Après l'étude de faisabilité, la commune lance un appel à manifestation d'intérêt.")

	assert.Equal(t, core.MaturityConsultation, r.Maturity)
	assert.Equal(t, 4, r.Bonus)
	assert.Equal(t, []string{"appel à manifestation d'intérêt"}, r.Consultation)
	assert.Equal(t, []string{"étude de faisabilité"}, r.Reflection)
	assert.Equal(t, 2, r.Count())
}

func TestSignals_MaturityLadder(t *testing.T) {
	c := NewSignalClassifier(campaign.Default())
	tests := []struct {
		text  string
		want  core.Maturity
		bonus int
	}{
		{"inscription au plan pluriannuel d'investissement et étude préalable", core.MaturityProgrammation, 3},
		{"un diagnostic énergétique des bâtiments", core.MaturityEtude, 2},
		{"la fête de la musique", core.MaturityReflexion, 1},
	}
	for _, tt := range tests {
		r := c.Classify(tt.text)
		assert.Equal(t, tt.want, r.Maturity, tt.text)
		assert.Equal(t, tt.bonus, r.Bonus, tt.text)
	}
}

func TestSignals_DisabledCategoryIgnored(t *testing.T) {
	camp := campaign.Default()
	camp.Signals.Consultation = false
	c := NewSignalClassifier(camp)

	r := c.Classify("appel à manifestation d'intérêt suite à l'étude de faisabilité")
	assert.Empty(t, r.Consultation)
	assert.Equal(t, core.MaturityEtude, r.Maturity)
}

func TestSignals_Deterministic(t *testing.T) {
	text := "cahier des charges, autorisation de programme, audit énergétique"
	c := NewSignalClassifier(campaign.Default())
	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}

func fixedNow() time.Time { return time.Date(2026, 3, 20, 15, 30, 0, 0, time.UTC) }

func daysAgo(n int) *time.Time {
	d := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
	return &d
}

func TestRanker_Freshness(t *testing.T) {
	r := NewCompositeRanker(fixedNow)
	assert.Equal(t, 0, r.Freshness(nil))
	assert.Equal(t, 0, r.Freshness(daysAgo(0)))
	assert.Equal(t, 0, r.Freshness(daysAgo(6)))
	assert.Equal(t, -1, r.Freshness(daysAgo(7)))
	assert.Equal(t, -3, r.Freshness(daysAgo(22)))
	assert.Equal(t, -12, r.Freshness(daysAgo(84)))
	assert.Equal(t, -12, r.Freshness(daysAgo(400)))
	assert.Equal(t, 0, r.Freshness(daysAgo(-10)), "future dates are not rewarded")
}

func TestRanker_Formula(t *testing.T) {
	camp := campaign.Default()
	rel := NewRelevanceScorer(camp)
	sig := NewSignalClassifier(camp)
	r := NewCompositeRanker(fixedNow)

	text := "Délibération : chaufferie biomasse, subvention ADEME, cahier des charges validé."
	rr := rel.Score(text)
	sr := sig.Classify(text)

	b := r.Breakdown(rr, sr, daysAgo(15), core.SourceDeliberation)
	assert.Equal(t, -2, b.Freshness)
	assert.Equal(t, 3*2+2, b.Relevance)
	assert.Equal(t, 1, b.Signals)
	assert.Equal(t, 2, b.Source)
	assert.Equal(t, 4, b.Maturity)
	assert.Equal(t, 13, b.Total())
	assert.Equal(t, 13, r.Rank(core.ExtractedDocument{}, rr, sr, daysAgo(15), core.SourceDeliberation))
}

func TestRanker_NoMatchesDrivenByContext(t *testing.T) {
	camp := campaign.Default()
	r := NewCompositeRanker(fixedNow)
	rr := NewRelevanceScorer(camp).Score("Fermeture estivale de la mairie")
	sr := NewSignalClassifier(camp).Classify("Fermeture estivale de la mairie")

	assert.Equal(t, core.MaturityReflexion, sr.Maturity)
	assert.Equal(t, 0-1+1+1, r.Rank(core.ExtractedDocument{}, rr, sr, daysAgo(8), core.SourceBulletin))
	assert.Equal(t, 0+0+1, r.Rank(core.ExtractedDocument{}, rr, sr, nil, core.SourceGenerique))
}

func TestSourceWeights(t *testing.T) {
	assert.Equal(t, 2, core.SourceRSS.Weight())
	assert.Equal(t, 2, core.SourceDeliberation.Weight())
	assert.Equal(t, 1, core.SourceActualites.Weight())
	assert.Equal(t, 1, core.SourceBulletin.Weight())
	assert.Equal(t, 0, core.SourceBudget.Weight())
	assert.Equal(t, 0, core.SourceGenerique.Weight())
}

func TestSort_StableByScoreThenOrder(t *testing.T) {
	docs := []core.RankedDocument{
		{Score: 3, Order: 4},
		{Score: 5, Order: 2},
		{Score: 3, Order: 1},
		{Score: 5, Order: 0},
		{Score: -1, Order: 3},
	}
	Sort(docs)

	var got []string
	for _, d := range docs {
		got = append(got, fmt.Sprintf("%d/%d", d.Score, d.Order))
	}
	assert.Equal(t, []string{"5/0", "5/2", "3/1", "3/4", "-1/3"}, got)
}

func TestDeduper_SamePrefixCollapses(t *testing.T) {
	body := ""
	for len(body) < 600 {
		body += "Conseil municipal : projet de chaufferie biomasse. "
	}
	rss := core.Fingerprint(body + " version flux")
	bulletin := core.Fingerprint(body + " version bulletin")
	other := core.Fingerprint("Autre document")
	require.Equal(t, rss, bulletin)

	admit := func(fps ...string) []string {
		d := NewDeduper()
		var kept []string
		for _, fp := range fps {
			if d.Admit(fp) {
				kept = append(kept, fp)
			}
		}
		return kept
	}

	once := admit(rss, other, bulletin)
	assert.Equal(t, []string{rss, other}, once, "earliest discovery kept")
	assert.Equal(t, once, admit(once...), "idempotent")
}

func TestDeduper(t *testing.T) {
	d := NewDeduper()
	assert.True(t, d.Admit("a"))
	assert.False(t, d.Admit("a"))
	assert.True(t, d.Admit("b"))
}
