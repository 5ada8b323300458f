package schemas

import (
	"fmt"
	"strings"
)

// -- Vulnerability Schemas --

// Severity is the ordinal impact ranking of a vulnerability. The zero value is
// SeverityNone, and values compare naturally: SeverityHigh < SeverityCritical.
type Severity int

// Severity levels in ascending order.
const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

// String returns the upper case label, e.g. "CRITICAL".
func (s Severity) String() string {
	if s < SeverityNone || s > SeverityCritical {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// MarshalText encodes the severity by its label so JSON and YAML carry
// "HIGH" rather than 3.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityNone || s > SeverityCritical {
		return nil, fmt.Errorf("invalid severity value %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity label, case insensitively.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a label such as "high" or "CRITICAL" into a Severity.
func ParseSeverity(label string) (Severity, bool) {
	upper := strings.ToUpper(strings.TrimSpace(label))
	for i, name := range severityNames {
		if name == upper {
			return Severity(i), true
		}
	}
	return SeverityNone, false
}

// SeverityFromScore derives a severity from a CVSS base score using the
// standard qualitative bands.
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Retained reports whether records of this severity survive the lookup
// boundary. Only HIGH and CRITICAL are kept.
func (s Severity) Retained() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ScoringScheme names the CVSS version a record's score was taken from.
type ScoringScheme string

const (
	SchemeCVSSv40 ScoringScheme = "CVSS_V40"
	SchemeCVSSv31 ScoringScheme = "CVSS_V31"
	SchemeCVSSv30 ScoringScheme = "CVSS_V30"
	SchemeCVSSv2  ScoringScheme = "CVSS_V2"
)

// VulnerabilityRecord is one known vulnerability attributed to a component.
type VulnerabilityRecord struct {
	ID            string        `json:"cve_id" yaml:"cve_id"`
	Severity      Severity      `json:"severity" yaml:"severity"`
	Score         float64       `json:"cvss_score" yaml:"cvss_score"`
	ScoringScheme ScoringScheme `json:"scoring_scheme,omitempty" yaml:"scoring_scheme,omitempty"`
	// Summary is capped at MaxSummaryLength characters plus an ellipsis.
	Summary string `json:"description" yaml:"description"`
	// Timestamps are kept in the upstream format.
	PublishedAt string `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	UpdatedAt   string `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
}

// MaxSummaryLength is the number of characters kept from a vulnerability
// description before it is truncated.
const MaxSummaryLength = 200

// TruncateSummary shortens s to MaxSummaryLength characters and appends "..."
// when anything was cut.
func TruncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSummaryLength {
		return s
	}
	return string(runes[:MaxSummaryLength]) + "..."
}

// VulnerabilityQuery identifies the component a lookup is for.
type VulnerabilityQuery struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Ecosystem Ecosystem `json:"ecosystem"`
}

// -- Jurisdiction Schemas --

// SignalSource identifies which piece of component metadata produced a
// jurisdiction signal.
type SignalSource string

const (
	SourceOriginProperty  SignalSource = "explicit-origin-property"
	SourceAuthorEmail     SignalSource = "author-email-domain"
	SourceMaintainerEmail SignalSource = "maintainer-email-domain"
)

// JurisdictionSignal is evidence linking a component to a restricted
// jurisdiction. Several signals may exist for one component and they are
// additive.
type JurisdictionSignal struct {
	Source       SignalSource `json:"source" yaml:"source"`
	Jurisdiction string       `json:"jurisdiction" yaml:"jurisdiction"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	Domain       string       `json:"domain,omitempty" yaml:"domain,omitempty"`
}
