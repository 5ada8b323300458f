// Package risk turns individual signals into bounded scores and verdicts.
package risk

import "github.com/xkilldash9x/sbomrisk/api/schemas"

// Addends contributed by a component's top vulnerability.
const (
	CriticalTierThreshold = 9.0
	HighTierThreshold     = 7.0
	CriticalTierAddend    = 1.0
	HighTierAddend        = 0.8
	MaxScore              = 1.0
)

// ComponentScore combines a component's jurisdiction signals with its best
// vulnerability into a score in [0, 1]. Contributions are summed and then
// clamped, so a single strong signal is enough to saturate the score and
// weaker ones can never drag it down.
func ComponentScore(signals []schemas.JurisdictionSignal, top *schemas.VulnerabilityRecord) float64 {
	var score float64
	for _, s := range signals {
		if s.Confidence > 0 {
			score += s.Confidence
		}
	}
	if top != nil {
		switch {
		case top.Score >= CriticalTierThreshold:
			score += CriticalTierAddend
		case top.Score >= HighTierThreshold:
			score += HighTierAddend
		}
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// TopVulnerability returns the record with the highest score, or nil. Ties
// keep the earliest record.
func TopVulnerability(records []schemas.VulnerabilityRecord) *schemas.VulnerabilityRecord {
	var best *schemas.VulnerabilityRecord
	for i := range records {
		if best == nil || records[i].Score > best.Score {
			best = &records[i]
		}
	}
	return best
}

// Exposure is the set of counts a verdict is decided from.
type Exposure struct {
	Critical             int
	High                 int
	JurisdictionRisks    int
	VulnerableComponents int
}

// Level picks the verdict, first match wins: CRITICAL on any critical
// vulnerability, HIGH on any high vulnerability or jurisdiction risk, MEDIUM
// on any vulnerable component, LOW otherwise.
func Level(e Exposure) schemas.RiskLevel {
	switch {
	case e.Critical > 0:
		return schemas.RiskCritical
	case e.High > 0 || e.JurisdictionRisks > 0:
		return schemas.RiskHigh
	case e.VulnerableComponents > 0:
		return schemas.RiskMedium
	default:
		return schemas.RiskLow
	}
}

// ActionRequired reports whether the exposure needs an explicit decision
// before release.
func ActionRequired(e Exposure) bool {
	return e.Critical > 0 || e.JurisdictionRisks > 0
}
