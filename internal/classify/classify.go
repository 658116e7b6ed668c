// Package classify maps URLs to normalized domains and coarse categories.
package classify

import (
	"net/url"
	"strings"
)

// Category labels.
const (
	Social        = "Social"
	Work          = "Work"
	Entertainment = "Entertainment"
	Search        = "Search"
	Education     = "Education"
	Other         = "Other"
)

// Result is the attribution for one URL. An empty Domain means "do not record".
type Result struct {
	Domain   string
	Category string
}

// builtinCategories is matched by exact normalized domain only. Substring
// matching would let facebook.com.evil.com borrow the Social label.
var builtinCategories = map[string]string{
	"facebook.com":    Social,
	"twitter.com":     Social,
	"instagram.com":   Social,
	"docs.google.com": Work,
	"notion.so":       Work,
	"github.com":      Work,
	"youtube.com":     Entertainment,
	"netflix.com":     Entertainment,
	"google.com":      Search,
	"bing.com":        Search,
	"duckduckgo.com":  Search,
	"wikipedia.org":   Education,
	"coursera.org":    Education,
	"khanacademy.org": Education,
}

var internalPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"chrome-search://",
	"edge://",
	"brave://",
	"about:",
	"moz-extension://",
	"devtools://",
	"view-source:",
	"file://",
}

// Classifier assigns categories from the built-in table plus overrides.
type Classifier struct {
	table    map[string]string
	fallback string
}

// New builds a Classifier. Overrides take precedence over built-in entries;
// their keys are normalized the same way URLs are.
func New(overrides map[string]string) *Classifier {
	table := make(map[string]string, len(builtinCategories)+len(overrides))
	for d, c := range builtinCategories {
		table[d] = c
	}
	for d, c := range overrides {
		d = NormalizeDomain(d)
		if d == "" || strings.TrimSpace(c) == "" {
			continue
		}
		table[d] = c
	}
	return &Classifier{table: table, fallback: Other}
}

// Classify extracts the domain from rawURL and labels it. Malformed URLs and
// URLs without a host yield an empty Result rather than an error.
func (c *Classifier) Classify(rawURL string) Result {
	domain := Domain(rawURL)
	if domain == "" {
		return Result{}
	}
	return Result{Domain: domain, Category: c.Category(domain)}
}

// Category labels an already-normalized domain.
func (c *Classifier) Category(domain string) string {
	if cat, ok := c.table[NormalizeDomain(domain)]; ok {
		return cat
	}
	return c.fallback
}

// Categories lists every label the classifier can produce.
func (c *Classifier) Categories() []string {
	seen := map[string]bool{c.fallback: true}
	out := []string{}
	for _, cat := range []string{Social, Work, Entertainment, Search, Education} {
		seen[cat] = true
		out = append(out, cat)
	}
	for _, cat := range c.table {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return append(out, c.fallback)
}

// Domain returns the normalized host of rawURL, or "" if it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}

// NormalizeDomain lowercases host and strips one leading "www.".
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

// IsInternal reports whether rawURL is a browser-internal page that is never timed.
func IsInternal(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return true
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
