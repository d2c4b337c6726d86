// Package normalize canonicalizes candidate items into comparable keys.
package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"NewsletterCurator/internal/domain"
)

// Normalize derives the deterministic matching key for a candidate.
// Tracking parameters, fragments, protocol, and a leading www. never
// affect the canonical URL, so the same logical resource always maps to
// the same key.
func Normalize(item domain.CandidateItem) (domain.NormalizedKey, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = strings.TrimSpace(item.LinkText)
	}

	canonical := CanonicalURL(item.URL)
	if canonical == "" && title == "" {
		return domain.NormalizedKey{}, domain.InvalidCandidateError(item, "no usable url or title")
	}
	if strings.TrimSpace(item.RawText) == "" && title == "" {
		return domain.NormalizedKey{}, domain.InvalidCandidateError(item, "empty text and title")
	}

	return domain.NormalizedKey{
		CanonicalURL:   canonical,
		CanonicalTitle: CanonicalTitle(title),
	}, nil
}

// CanonicalURL reduces a raw URL to host/path form: lowercased host without
// www., no scheme, no query string, no fragment, no trailing slash.
// Returns "" when the input cannot be parsed into a host.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}

	path := strings.TrimRight(parsed.EscapedPath(), "/")
	return host + path
}

// CanonicalTitle lowercases, folds punctuation to spaces, and collapses
// whitespace so token comparison is stable across formatting noise.
func CanonicalTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits a canonical title into its comparison tokens.
func Tokens(canonicalTitle string) []string {
	return strings.Fields(canonicalTitle)
}
