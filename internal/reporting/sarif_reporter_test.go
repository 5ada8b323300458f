package reporting_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/reporting"
	"github.com/xkilldash9x/sbomrisk/internal/reporting/sarif"
)

func setupSARIFTest(_ *testing.T) (*reporting.SARIFReporter, *MockWriteCloser) {
	w := newMockWriter()
	return reporting.NewSARIFReporter(w, "v1.2.3-test"), w
}

func decodeSARIF(t *testing.T, w *MockWriteCloser) sarif.Log {
	t.Helper()
	var log sarif.Log
	require.NoError(t, json.Unmarshal(w.Buffer.Bytes(), &log), "Output should be valid SARIF JSON")
	require.Len(t, log.Runs, 1)
	return log
}

func TestSARIFReporter_Initialization(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Close())
	assert.True(t, writer.Closed)

	log := decodeSARIF(t, writer)
	assert.Equal(t, reporting.SARIFVersion, log.Version)
	assert.Equal(t, reporting.SARIFSchema, log.Schema)

	run := log.Runs[0]
	require.NotNil(t, run.Tool)
	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, reporting.ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "v1.2.3-test", *run.Tool.Driver.Version)

	// Results must encode as [] rather than null.
	require.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
	assert.Empty(t, run.Tool.Driver.Rules)
}

func TestSARIFReporter_WriteAndClose(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Write(fixtureResult()))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	require.Len(t, run.Results, 3)
	require.Len(t, run.Tool.Driver.Rules, 3)

	critical := run.Results[0]
	assert.Equal(t, "CVE-2024-0001", critical.RuleID)
	assert.Equal(t, sarif.LevelError, critical.Level)
	assert.Equal(t, "CVE-2024-0001 (CVSS 9.8, CRITICAL) affects jinja2@2.10: Remote code execution in template rendering.", *critical.Message.Text)
	require.Len(t, critical.Locations, 1)
	logical := critical.Locations[0].LogicalLocations[0]
	assert.Equal(t, "pkg:pypi/jinja2@2.10", *logical.FullyQualifiedName)
	assert.Equal(t, "jinja2", *logical.Name)
	assert.Equal(t, 9.8, critical.Properties["cvss_score"])
	assert.Equal(t, "CVSS_V31", critical.Properties["scoring_scheme"])

	high := run.Results[1]
	assert.Equal(t, "CVE-2024-0002", high.RuleID)
	assert.Equal(t, sarif.LevelError, high.Level)

	jurisdiction := run.Results[2]
	assert.Equal(t, reporting.JurisdictionRulePrefix+"IRAN", jurisdiction.RuleID)
	assert.Equal(t, sarif.LevelError, jurisdiction.Level)
	assert.Equal(t, "test-package@1.0.0 is linked to Iran via author-email-domain (iran.ir)", *jurisdiction.Message.Text)
	assert.Equal(t, "Iran", jurisdiction.Properties["jurisdiction"])

	rules := make(map[string]*sarif.ReportingDescriptor)
	for _, r := range run.Tool.Driver.Rules {
		rules[r.ID] = r
	}
	cveRule := rules["CVE-2024-0001"]
	require.NotNil(t, cveRule)
	assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2024-0001", *cveRule.HelpURI)
	assert.Equal(t, "Remote code execution in template rendering.", *cveRule.FullDescription.Text)
	assert.ElementsMatch(t, []interface{}{"security", "vulnerability", "critical"}, cveRule.Properties["tags"])

	assert.NotNil(t, run.Properties["analyses"])
}

func TestSARIFReporter_LowConfidenceSignalIsWarning(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	result := fixtureResult()
	result.Vulnerabilities = schemas.VulnerabilityAnalysis{}
	result.JurisdictionRisks[0].Signals = []schemas.JurisdictionSignal{{
		Source: schemas.SourceMaintainerEmail, Jurisdiction: "North Korea", Confidence: 0.6, Domain: "dprk-mirror.example",
	}}
	require.NoError(t, reporter.Write(result))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	require.Len(t, run.Results, 1)
	assert.Equal(t, sarif.LevelWarning, run.Results[0].Level)
	assert.Equal(t, reporting.JurisdictionRulePrefix+"NORTH-KOREA", run.Results[0].RuleID)
}

func TestSARIFReporter_RulesAreShared(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	// The same result twice yields six results but still three rules.
	require.NoError(t, reporter.Write(fixtureResult()))
	require.NoError(t, reporter.Write(fixtureResult()))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	assert.Len(t, run.Results, 6)
	assert.Len(t, run.Tool.Driver.Rules, 3)
	assert.Len(t, run.Properties["analyses"], 2)
}

func TestSARIFReporter_RuleCollisionHandling(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	// Same identifier, different content: the second rule gets a suffix.
	result := fixtureResult()
	variant := result.Vulnerabilities.Critical[0]
	variant.Summary = "A different description of the same identifier."
	result.Vulnerabilities.Critical = append(result.Vulnerabilities.Critical, variant)
	require.NoError(t, reporter.Write(result))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	assert.Equal(t, "CVE-2024-0001", run.Results[0].RuleID)
	assert.Equal(t, "CVE-2024-0001-1", run.Results[1].RuleID)
}

func TestSARIFReporter_RuleIDSanitization(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"GHSA-abcd-efgh-ijkl", "GHSA-ABCD-EFGH-IJKL"},
		{"PYSEC 2021/66", "PYSEC-2021-66"},
		{"  ***  ", "UNKNOWN"},
		{"cve.2024_1", "CVE.2024_1"},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			reporter, writer := setupSARIFTest(t)
			result := fixtureResult()
			result.Vulnerabilities.Critical[0].ID = tc.id
			result.Vulnerabilities.High = nil
			result.JurisdictionRisks = nil
			require.NoError(t, reporter.Write(result))
			require.NoError(t, reporter.Close())

			run := decodeSARIF(t, writer).Runs[0]
			require.Len(t, run.Results, 1)
			assert.Equal(t, tc.want, run.Results[0].RuleID)
		})
	}
}

func TestSARIFReporter_NilResult(t *testing.T) {
	reporter, _ := setupSARIFTest(t)
	assert.Error(t, reporter.Write(nil))
}

func TestSARIFReporter_ConcurrentWrites(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := fixtureResult()
			result.AnalysisID = fmt.Sprintf("analysis-%d", i)
			assert.NoError(t, reporter.Write(result))
		}(i)
	}
	wg.Wait()
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	assert.Len(t, run.Results, 30)
	assert.Len(t, run.Tool.Driver.Rules, 3)
}
