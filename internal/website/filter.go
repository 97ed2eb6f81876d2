package website

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// excludedDomains are hosts that list companies but never are the company.
var excludedDomains = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"x.com",
	"twitter.com",
	"wikipedia.org",
	"justdial.com",
	"crunchbase.com",
	"youtube.com",
	"glassdoor.com",
	"indeed.com",
	"zoominfo.com",
	"bloomberg.com",
	"yelp.com",
}

// LooksLikeCompanySite reports whether a search result link plausibly
// belongs to the company. Unparseable links are rejected.
//
// A host is excluded when it is one of excludedDomains or a subdomain of
// one. Matching is on label boundaries, not a plain suffix test, so
// "fedex.com" survives "x.com" and "mylinkedin.com" is not treated as
// LinkedIn.
func LooksLikeCompanySite(link, company string) bool {
	host := normalizeHost(link)
	if host == "" || isExcluded(host) {
		return false
	}

	tokens := nameTokens(company)
	if len(tokens) == 0 {
		return true
	}
	for _, tok := range tokens {
		if strings.Contains(host, tok) {
			return true
		}
	}
	return false
}

func normalizeHost(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// isExcluded matches on label boundaries so "x.com" does not catch
// "fedex.com".
func isExcluded(host string) bool {
	for _, d := range excludedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// nameTokens splits a company name on whitespace and '&', keeping tokens
// longer than two characters.
func nameTokens(company string) []string {
	fields := strings.FieldsFunc(strings.ToLower(company), func(r rune) bool {
		return unicode.IsSpace(r) || r == '&'
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Slug builds the bare domain label guessed from a company name.
func Slug(company string) string {
	s := strings.ReplaceAll(company, " ", "")
	return strings.ReplaceAll(s, "&", "and")
}

// Candidates returns the guessed URLs in probe order.
func Candidates(company string) []string {
	slug := Slug(company)
	if slug == "" {
		return nil
	}
	return []string{
		"https://" + slug + ".com",
		"https://" + slug + ".in",
		"https://" + slug + ".co.in",
	}
}
