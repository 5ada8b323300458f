package jurisdiction

import (
	"strings"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// Confidence assigned to each kind of evidence. An explicit self declaration
// outranks a ccTLD match, which outranks a keyword match.
const (
	OriginConfidence  = 0.9
	CCTLDConfidence   = 0.8
	KeywordConfidence = 0.6
)

// countryCodeTLDs maps a top level domain label to a jurisdiction.
var countryCodeTLDs = map[string]string{
	"ir": "Iran",
	"cu": "Cuba",
	"kp": "North Korea",
	"sy": "Syria",
	"ve": "Venezuela",
	"ru": "Russia",
	"by": "Belarus",
	"mm": "Myanmar",
}

type keyword struct {
	term         string
	jurisdiction string
}

// keywords is scanned in order; the first substring hit wins.
var keywords = []keyword{
	{"cuba", "Cuba"},
	{"iran", "Iran"},
	{"north korea", "North Korea"},
	{"northkorea", "North Korea"},
	{"dprk", "North Korea"},
	{"syria", "Syria"},
	{"venezuela", "Venezuela"},
	{"russia", "Russia"},
	{"belarus", "Belarus"},
	{"myanmar", "Myanmar"},
	{"burma", "Myanmar"},
	{"crimea", "Crimea Region"},
	{"donetsk", "Donetsk Region"},
	{"luhansk", "Luhansk Region"},
	// Capitals and historical names.
	{"havana", "Cuba"},
	{"tehran", "Iran"},
	{"pyongyang", "North Korea"},
	{"damascus", "Syria"},
	{"caracas", "Venezuela"},
	{"moscow", "Russia"},
	{"minsk", "Belarus"},
	{"rangoon", "Myanmar"},
	{"yangon", "Myanmar"},
	{"naypyidaw", "Myanmar"},
	{"sevastopol", "Crimea Region"},
}

// knownJurisdictions is the set of canonical names an origin property may
// declare.
var knownJurisdictions = func() map[string]bool {
	names := make(map[string]bool)
	for _, j := range countryCodeTLDs {
		names[j] = true
	}
	for _, k := range keywords {
		names[k.jurisdiction] = true
	}
	return names
}()

// Classify maps a domain to a restricted jurisdiction. A ccTLD hit returns
// CCTLDConfidence, otherwise a keyword substring hit returns
// KeywordConfidence. No match returns ("", 0).
func Classify(domain string) (jurisdiction string, confidence float64) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", 0
	}

	tld := domain
	if i := strings.LastIndex(domain, "."); i >= 0 {
		tld = domain[i+1:]
	}
	if j, ok := countryCodeTLDs[tld]; ok {
		return j, CCTLDConfidence
	}

	for _, k := range keywords {
		if strings.Contains(domain, k.term) {
			return k.jurisdiction, KeywordConfidence
		}
	}
	return "", 0
}

// IsKnown reports whether name is one of the canonical jurisdiction names.
func IsKnown(name string) bool {
	return knownJurisdictions[name]
}

// OriginSignal turns an explicit origin property into a signal when its value
// exactly equals a known jurisdiction name.
func OriginSignal(value string) (schemas.JurisdictionSignal, bool) {
	if !IsKnown(value) {
		return schemas.JurisdictionSignal{}, false
	}
	return schemas.JurisdictionSignal{
		Source:       schemas.SourceOriginProperty,
		Jurisdiction: value,
		Confidence:   OriginConfidence,
	}, true
}

// EmailSignal classifies the domain of an email address.
func EmailSignal(source schemas.SignalSource, email string) (schemas.JurisdictionSignal, bool) {
	domain, ok := ExtractDomain(email)
	if !ok {
		return schemas.JurisdictionSignal{}, false
	}
	j, confidence := Classify(domain)
	if j == "" {
		return schemas.JurisdictionSignal{}, false
	}
	return schemas.JurisdictionSignal{
		Source:       source,
		Jurisdiction: j,
		Confidence:   confidence,
		Domain:       domain,
	}, true
}

// Signals collects every jurisdiction signal carried by a component's
// properties: the origin declaration, then the author and maintainer email
// domains. The result is nil when nothing matched.
func Signals(c schemas.Component) []schemas.JurisdictionSignal {
	var signals []schemas.JurisdictionSignal

	// Unlike the email properties, an unrecognised origin does not mask an
	// earlier recognised one.
	var origin *schemas.JurisdictionSignal
	for _, p := range c.Properties {
		if p.Name != schemas.PropertyOrigin {
			continue
		}
		if s, ok := OriginSignal(p.Value); ok {
			origin = &s
		}
	}
	if origin != nil {
		signals = append(signals, *origin)
	}
	if email, ok := c.Property(schemas.PropertyAuthorEmail); ok {
		if s, ok := EmailSignal(schemas.SourceAuthorEmail, email); ok {
			signals = append(signals, s)
		}
	}
	if email, ok := c.Property(schemas.PropertyMaintainerEmail); ok {
		if s, ok := EmailSignal(schemas.SourceMaintainerEmail, email); ok {
			signals = append(signals, s)
		}
	}
	return signals
}
