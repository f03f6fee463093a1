package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short text unchanged", "chaufferie biomasse", 100, "chaufferie biomasse"},
		{"exact length unchanged", "abcde", 5, "abcde"},
		{"zero disables", "abc def", 0, "abc def"},
		{"cuts at word boundary", "chaufferie biomasse collective", 15, "chaufferie" + TruncatedMarker},
		{"boundary right after limit", "réseau chaleur bois", 14, "réseau chaleur" + TruncatedMarker},
		{"single long word", "anticonstitutionnellement", 5, "antic" + TruncatedMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.text, tt.max))
		})
	}
}

func TestTruncate_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("é", 10)
	assert.Equal(t, strings.Repeat("é", 4)+TruncatedMarker, Truncate(text, 4))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "un deux trois…", Excerpt("un  deux\ntrois quatre", 3))
	assert.Equal(t, "un deux", Excerpt(" un deux ", 3))
	assert.Equal(t, "", Excerpt("", 3))
}
