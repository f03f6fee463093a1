// URL filtering rules: same-domain checks, skipped extensions and
// normalization used during site navigation.

package crawl

import (
	"net/url"
	"path"
	"strings"
)

// staticExtensions are file extensions never worth fetching.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true,
	".xls": true, ".xlsx": true, ".ods": true, ".csv": true,
	".ics": true, ".vcf": true,
}

// documentExtensions are downloadable documents handed to the extractor.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".odt": true,
}

// excludedTokens mark links that never lead to municipal documents:
// accounts, carts, media galleries and social sharing.
var excludedTokens = []string{
	"login", "logout", "connexion", "deconnexion", "inscription", "mon-compte", "moncompte",
	"account", "panier", "checkout", "wp-admin", "wp-login",
	"galerie", "gallery", "phototheque", "mediatheque", "videos", "/media/photos",
	"facebook", "twitter", "instagram", "linkedin", "youtube", "tiktok", "pinterest",
	"share=", "partage",
	"plan-du-site", "mentions-legales", "cookies", "accessibilite",
}

// IsSameDomain checks if the given URL belongs to the specified host.
// A leading "www." is ignored on both sides.
func IsSameDomain(rawURL string, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return stripWWW(parsed.Host) == stripWWW(host)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return staticExtensions[ext]
}

// IsDocument reports whether a URL points at a document, either by its
// path extension or through a CMS file parameter (…?path=bulletin.pdf).
func IsDocument(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if documentExtensions[strings.ToLower(path.Ext(parsed.Path))] {
		return true
	}
	for _, values := range parsed.Query() {
		for _, v := range values {
			if documentExtensions[strings.ToLower(path.Ext(v))] {
				return true
			}
		}
	}
	return false
}

// IsExcluded reports whether a link should be ignored outright.
func IsExcluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, tok := range excludedTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)

	// Remove trailing slash (but keep root "/").
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String()
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
