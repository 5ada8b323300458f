package schemas_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// TestStructJSONTags pins the wire names of the result document. Downstream
// consumers read these keys, so renames must be deliberate.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "AnalysisResult",
			structRef: schemas.AnalysisResult{},
			expectedTags: map[string]string{
				"AnalysisID":        "analysis_id",
				"AnalysisTimestamp": "analysis_timestamp",
				"Summary":           "summary",
				"Findings":          "findings",
				"JurisdictionRisks": "ofac_risks",
				"Vulnerabilities":   "cve_analysis",
				"Dependencies":      "dependency_analysis",
				"OverallRiskLevel":  "overall_risk_level",
				"ExecutiveSummary":  "executive_summary",
				"Metadata":          "metadata,omitempty",
			},
		},
		{
			name:      "VulnerabilityAnalysis",
			structRef: schemas.VulnerabilityAnalysis{},
			expectedTags: map[string]string{
				"Critical":                      "critical_cves",
				"High":                          "high_cves",
				"TotalFound":                    "total_cves_found",
				"ComponentsWithVulnerabilities": "components_with_cves",
				"VulnerableComponents":          "vulnerable_components",
				"LookupsFailed":                 "lookups_failed",
				"LookupsSkipped":                "lookups_skipped",
			},
		},
		{
			name:      "ExecutiveSummary",
			structRef: schemas.ExecutiveSummary{},
			expectedTags: map[string]string{
				"BottomLine":     "bluf",
				"RiskLevel":      "risk_level",
				"Recommendation": "recommendation",
				"KeyMetrics":     "key_metrics",
				"TopRisks":       "top_risks",
				"ActionRequired": "action_required",
			},
		},
		{
			name:      "VulnerabilityRecord",
			structRef: schemas.VulnerabilityRecord{},
			expectedTags: map[string]string{
				"ID":            "cve_id",
				"Severity":      "severity",
				"Score":         "cvss_score",
				"ScoringScheme": "scoring_scheme,omitempty",
				"Summary":       "description",
				"PublishedAt":   "published_date,omitempty",
				"UpdatedAt":     "last_modified,omitempty",
			},
		},
		{
			name:      "DependencyGraphStats",
			structRef: schemas.DependencyGraphStats{},
			expectedTags: map[string]string{
				"TotalDependencies":      "total_dependencies",
				"MaxDepth":               "max_depth",
				"DepthDistribution":      "depth_distribution",
				"DirectDependencies":     "direct_dependencies",
				"TransitiveDependencies": "transitive_dependencies",
				"Tree":                   "dependency_tree",
			},
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			structType := reflect.TypeOf(tt.structRef)
			actualTags := make(map[string]string)
			for i := 0; i < structType.NumField(); i++ {
				field := structType.Field(i)
				if jsonTag := field.Tag.Get("json"); jsonTag != "" {
					actualTags[field.Name] = jsonTag
				}
			}
			assert.Equal(t, tt.expectedTags, actualTags, "JSON tags for struct %s do not match expectations", tt.name)
		})
	}
}
