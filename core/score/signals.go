package score

import (
	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
	"github.com/gaurav-prasanna/muniwatch/core/phrase"
)

// SignalClassifier detects administrative-stage phrases and derives the
// project maturity from them.
type SignalClassifier struct {
	matcher *phrase.Matcher
	toggles campaign.SignalToggles
}

// NewSignalClassifier builds a classifier from the campaign's phrase lists
// and toggles. Disabled categories never match.
func NewSignalClassifier(c campaign.Campaign) *SignalClassifier {
	p := c.EffectiveSignalPhrases()
	return &SignalClassifier{
		matcher: phrase.New(p.Budgetary, p.Reflection, p.Consultation),
		toggles: c.Signals,
	}
}

// Classify returns matched phrases per category and the inferred maturity.
// Highest stage wins: consultation, then budgetary (programmation), then
// reflection (etude), else reflexion.
func (c *SignalClassifier) Classify(text string) core.SignalResult {
	found := c.matcher.Match(text)

	var r core.SignalResult
	if c.toggles.Budgetary {
		r.Budgetary = found[0]
	}
	if c.toggles.Reflection {
		r.Reflection = found[1]
	}
	if c.toggles.Consultation {
		r.Consultation = found[2]
	}

	switch {
	case len(r.Consultation) > 0:
		r.Maturity = core.MaturityConsultation
	case len(r.Budgetary) > 0:
		r.Maturity = core.MaturityProgrammation
	case len(r.Reflection) > 0:
		r.Maturity = core.MaturityEtude
	default:
		r.Maturity = core.MaturityReflexion
	}
	r.Bonus = r.Maturity.Bonus()
	return r
}
