package crawl

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// categoryRules is the single classification table for links. Rules are
// tried in order against the accent-folded, lower-cased href and link
// text; the first match wins.
var categoryRules = []struct {
	source  core.SourceType
	pattern *regexp.Regexp
}{
	{core.SourceDeliberation, regexp.MustCompile(
		`deliberation|conseil[-_ ]?municipal|proces[-_ ]?verbal|compte[-_ ]?rendu|ordre[-_ ]du[-_ ]jour|` +
			`recueil[-_ ]des[-_ ]actes|actes[-_ ]administratifs|(?:^|[/=_ -])(?:dl|del|cm|cr|pv)[-_]`)},
	{core.SourceBudget, regexp.MustCompile(
		`budget|compte[-_ ]administratif|orientations?[-_ ]budgetaires?|finances|` +
			`(?:^|[/=_ -])(?:dob|rob)(?:[-_ ]|$)|(?:^|[/=_ -])ca[-_]\d{4}`)},
	{core.SourceBulletin, regexp.MustCompile(
		`bulletin|magazine|journal[-_ ]municipal|lettre[-_ ]d.?information|echo[-_ ]municipal|` +
			`(?:^|[/=_ -])(?:bm|bmo)[-_]|(?:^|[/=_ -])info[-_][a-z]+`)},
	{core.SourceActualites, regexp.MustCompile(
		`actualite|(?:^|[/=_ -])actus?(?:[/_ -]|$)|news|a[-_ ]la[-_ ]une|communique|agenda`)},
}

var (
	tier0Pattern = regexp.MustCompile(`deliberation|conseil|budget|marche|projet|energie|travaux|document|rapport`)
	tier1Pattern = regexp.MustCompile(`actualite|actu|news|bulletin|magazine|journal|info|publication|lettre`)
)

// Classify labels a link by its href and visible text. It returns the
// source category and the priority tier (0 best, 2 worst). It is a pure
// function of its inputs.
func Classify(href, text string) (core.SourceType, int) {
	subject := fold(linkSubject(href) + " " + text)

	source := core.SourceGenerique
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(subject) {
			source = rule.source
			break
		}
	}

	tier := 2
	switch {
	case tier0Pattern.MatchString(subject):
		tier = 0
	case tier1Pattern.MatchString(subject):
		tier = 1
	}
	return source, tier
}

// linkSubject is the part of a URL worth classifying: path and query,
// unescaped. The host is left out so "conseil-ville.fr" does not make every
// link look like a council page.
func linkSubject(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	s := u.Path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if unescaped, err := url.QueryUnescape(s); err == nil {
		s = unescaped
	}
	return s
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
