// Package summary condenses an AnalysisResult into a decision oriented
// executive summary.
package summary

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/risk"
)

// Limits on the ranked top risks list.
const (
	MaxCriticalTopRisks     = 3
	MaxJurisdictionTopRisks = 2
	MaxTopRisks             = 5
)

// Synthesize derives the executive summary. It reads result and never
// modifies it.
func Synthesize(result *schemas.AnalysisResult) schemas.ExecutiveSummary {
	if result == nil {
		result = &schemas.AnalysisResult{}
	}

	exposure := risk.Exposure{
		Critical:             len(result.Vulnerabilities.Critical),
		High:                 len(result.Vulnerabilities.High),
		JurisdictionRisks:    len(result.JurisdictionRisks),
		VulnerableComponents: result.Vulnerabilities.ComponentsWithVulnerabilities,
	}
	level := risk.Level(exposure)
	total := result.Summary.TotalComponents

	metrics := schemas.KeyMetrics{
		TotalComponents:            total,
		VulnerableComponents:       exposure.VulnerableComponents,
		VulnerablePercentage:       percentage(exposure.VulnerableComponents, total),
		CriticalVulnerabilities:    exposure.Critical,
		HighVulnerabilities:        exposure.High,
		JurisdictionRiskComponents: exposure.JurisdictionRisks,
		MaxDependencyDepth:         result.Dependencies.MaxDepth,
		DirectDependencies:         result.Dependencies.DirectDependencies,
		TransitiveDependencies:     result.Dependencies.TransitiveDependencies,
		UnverifiedComponents:       result.Vulnerabilities.LookupsFailed + result.Vulnerabilities.LookupsSkipped,
	}

	bottomLine, recommendation := wording(level, exposure, total)
	return schemas.ExecutiveSummary{
		BottomLine:     bottomLine,
		RiskLevel:      level,
		Recommendation: recommendation,
		KeyMetrics:     metrics,
		TopRisks:       topRisks(result),
		ActionRequired: risk.ActionRequired(exposure),
	}
}

// percentage is rounded to one decimal place; zero components yield 0.
func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func wording(level schemas.RiskLevel, e risk.Exposure, total int) (bottomLine, recommendation string) {
	switch level {
	case schemas.RiskCritical:
		bottomLine = fmt.Sprintf("CRITICAL RISK: %s found across %s.",
			plural(e.Critical, "critical vulnerability", "critical vulnerabilities"),
			plural(total, "component", "components"))
		if e.JurisdictionRisks > 0 {
			bottomLine += fmt.Sprintf(" Restricted-jurisdiction exposure also detected in %s.",
				plural(e.JurisdictionRisks, "component", "components"))
		}
		recommendation = "HALT DEPLOYMENT. Remediate critical vulnerabilities before release and escalate to the security team."
	case schemas.RiskHigh:
		switch {
		case e.High > 0 && e.JurisdictionRisks > 0:
			bottomLine = fmt.Sprintf("HIGH RISK: %s and restricted-jurisdiction exposure in %s.",
				plural(e.High, "high severity vulnerability", "high severity vulnerabilities"),
				plural(e.JurisdictionRisks, "component", "components"))
		case e.JurisdictionRisks > 0:
			bottomLine = fmt.Sprintf("HIGH RISK: restricted-jurisdiction exposure detected in %s; compliance review required.",
				plural(e.JurisdictionRisks, "component", "components"))
		default:
			bottomLine = fmt.Sprintf("HIGH RISK: %s found across %s.",
				plural(e.High, "high severity vulnerability", "high severity vulnerabilities"),
				plural(total, "component", "components"))
		}
		recommendation = "Deploy only with explicit risk acceptance. Schedule remediation of high severity findings and complete a compliance review of flagged components."
	case schemas.RiskMedium:
		bottomLine = fmt.Sprintf("MEDIUM RISK: %s of %d carry known vulnerabilities below the high severity threshold.",
			plural(e.VulnerableComponents, "component", "components"), total)
		recommendation = "Proceed with caution. Track the affected components and upgrade during the next maintenance window."
	default:
		bottomLine = fmt.Sprintf("LOW RISK: No critical vulnerabilities or restricted-jurisdiction exposure detected across %s.",
			plural(total, "component", "components"))
		recommendation = "Proceed with deployment. Continue routine dependency monitoring."
	}
	return bottomLine, recommendation
}

func topRisks(result *schemas.AnalysisResult) []schemas.TopRisk {
	risks := make([]schemas.TopRisk, 0, MaxTopRisks)

	for i, v := range result.Vulnerabilities.Critical {
		if i >= MaxCriticalTopRisks {
			break
		}
		risks = append(risks, schemas.TopRisk{
			Kind:        schemas.TopRiskCriticalVulnerability,
			Component:   v.Component,
			CVEID:       v.ID,
			Score:       v.Score,
			Description: fmt.Sprintf("%s in %s (CVSS %.1f)", v.ID, v.Component, v.Score),
		})
	}

	for i, f := range result.JurisdictionRisks {
		if i >= MaxJurisdictionTopRisks {
			break
		}
		jurisdiction := strongestJurisdiction(f.Signals)
		risks = append(risks, schemas.TopRisk{
			Kind:         schemas.TopRiskJurisdiction,
			Component:    f.Name,
			Jurisdiction: jurisdiction,
			Description:  fmt.Sprintf("%s is linked to %s", f.Name, jurisdiction),
		})
	}

	if len(risks) > MaxTopRisks {
		risks = risks[:MaxTopRisks]
	}
	return risks
}

// strongestJurisdiction names the jurisdiction of the highest confidence
// signal; ties keep the earlier signal.
func strongestJurisdiction(signals []schemas.JurisdictionSignal) string {
	best := -1
	for i, s := range signals {
		if best < 0 || s.Confidence > signals[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return signals[best].Jurisdiction
}
