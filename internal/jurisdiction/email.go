// Package jurisdiction screens component metadata for links to restricted
// (sanctioned) jurisdictions.
//
// This is a heuristic compliance screen, not a legal determination. It
// produces both false positives (substring collisions such as a company
// named after a city) and false negatives (anything not spelled out in
// metadata). Its output annotates an analysis for human review and never
// blocks processing.
package jurisdiction

import (
	"regexp"
	"strings"
)

// hostnamePattern accepts dot separated labels of 1-63 alphanumeric or hyphen
// characters that neither start nor end with a hyphen.
var hostnamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

// ExtractDomain returns the lower cased domain part of an email address.
// Extraction is best effort: anything other than exactly one "@" with a
// non-empty local part and a conservative hostname yields ok == false.
func ExtractDomain(email string) (domain string, ok bool) {
	email = strings.TrimSpace(email)
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	local, host, _ := strings.Cut(email, "@")
	if local == "" || host == "" {
		return "", false
	}
	host = strings.ToLower(host)
	if !hostnamePattern.MatchString(host) {
		return "", false
	}
	return host, true
}
