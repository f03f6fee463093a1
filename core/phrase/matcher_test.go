package phrase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_CaseInsensitiveSubstring(t *testing.T) {
	m := New(
		[]string{"chaufferie", "biomasse", "réseau chaleur"},
		[]string{"budget", "ADEME"},
	)

	got := m.Match("Projet de CHAUFFERIE Biomasse, budget 1,2 M€, subvention ademe")
	assert.Equal(t, []string{"chaufferie", "biomasse"}, got[0])
	assert.Equal(t, []string{"budget", "ADEME"}, got[1])
}

func TestMatch_KeepsConfiguredOrderNotTextOrder(t *testing.T) {
	m := New([]string{"alpha", "beta", "gamma"})
	got := m.Match("gamma then beta then alpha")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got[0])
}

func TestMatch_OverlappingPhrases(t *testing.T) {
	m := New([]string{"chaufferie", "chaufferie collective", "collective"})
	got := m.Match("la chaufferie collective du bourg")
	assert.Equal(t, []string{"chaufferie", "chaufferie collective", "collective"}, got[0])
}

func TestMatch_SamePhraseInSeveralSets(t *testing.T) {
	m := New([]string{"subvention"}, []string{"Subvention", "dsil"})
	got := m.Match("une subvention est demandée")
	assert.Equal(t, []string{"subvention"}, got[0])
	assert.Equal(t, []string{"Subvention"}, got[1])
}

func TestMatch_ApostrophesAndLineBreaks(t *testing.T) {
	m := New([]string{"appel à manifestation d'intérêt", "chaudière bois"})
	got := m.Match("lancement d’un appel à manifestation d’intérêt pour la chaudière\n  bois")
	assert.Equal(t, []string{"appel à manifestation d'intérêt", "chaudière bois"}, got[0])
}

func TestMatch_AccentsAreSignificant(t *testing.T) {
	m := New([]string{"crédit"})
	assert.Empty(t, m.Match("credit agricole")[0])
	assert.Equal(t, []string{"crédit"}, m.Match("CRÉDIT ouvert")[0])
}

func TestMatch_EmptyInputs(t *testing.T) {
	m := New([]string{}, []string{"", "  "})
	got := m.Match("anything")
	assert.Len(t, got, 2)
	assert.Empty(t, got[0])
	assert.Empty(t, got[1])

	assert.Empty(t, New([]string{"x"}).Match("")[0])
}

func TestMatch_Concurrent(t *testing.T) {
	m := New([]string{"biomasse", "chaufferie"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, []string{"biomasse", "chaufferie"}, m.Match("chaufferie biomasse")[0])
			}
		}()
	}
	wg.Wait()
}

func TestFold(t *testing.T) {
	assert.Equal(t, "l'étude de faisabilité", Fold("  L’Étude   de\nFaisabilité "))
}
