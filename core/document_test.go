package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSourceType(t *testing.T) {
	for _, in := range []string{"rss", "deliberation", "actualites", "bulletin", "budget", "generique"} {
		st, ok := ParseSourceType(in)
		assert.True(t, ok, in)
		assert.Equal(t, SourceType(in), st)
	}

	st, ok := ParseSourceType(" Deliberation ")
	assert.True(t, ok)
	assert.Equal(t, SourceDeliberation, st)

	for _, in := range []string{"", "deliberations", "pdf", "generic"} {
		_, ok := ParseSourceType(in)
		assert.False(t, ok, in)
	}
}
