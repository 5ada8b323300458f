package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "sbomrisk"
	ToolInfoURI  = "https://github.com/xkilldash9x/sbomrisk"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

	// JurisdictionRulePrefix prefixes the rule IDs of jurisdiction findings.
	JurisdictionRulePrefix = "SBOMRISK-JURISDICTION-"

	nvdDetailURL = "https://nvd.nist.gov/vuln/detail/"
)

// ruleIDSanitizer allows alphanumeric, underscore and dot. Every other run of
// characters collapses to a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// ruleDefinition is the content a rule is created from. Two findings that
// produce the same definition share a rule.
type ruleDefinition struct {
	BaseID      string
	Name        string
	Description string
	HelpURI     string
	Tags        []string
}

type RuleFingerprint string

func (d ruleDefinition) fingerprint() RuleFingerprint {
	h := sha1.New()
	// Encoding errors are not possible for this struct.
	_ = json.NewEncoder(h).Encode(d)
	return RuleFingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SARIFReporter renders vulnerability and jurisdiction findings as SARIF
// 2.1.0 results. It buffers everything and writes on Close. It is safe for
// concurrent use.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu                 sync.Mutex
	rulesByFingerprint map[RuleFingerprint]string
	ruleIDUsage        map[string]int
	analyses           []map[string]interface{}
}

// NewSARIFReporter creates a reporter that writes SARIF output, taking
// ownership of writer.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:             writer,
		logger:             observability.GetLogger().Named("sarif_reporter"),
		log:                log,
		rulesByFingerprint: make(map[RuleFingerprint]string),
		ruleIDUsage:        make(map[string]int),
	}
}

// Write converts the result's CRITICAL and HIGH vulnerabilities and its
// jurisdiction signals into SARIF results.
func (r *SARIFReporter) Write(result *schemas.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("cannot write a nil analysis result")
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	before := len(run.Results)

	for _, v := range result.Vulnerabilities.Critical {
		run.Results = append(run.Results, r.vulnerabilityResult(v))
	}
	for _, v := range result.Vulnerabilities.High {
		run.Results = append(run.Results, r.vulnerabilityResult(v))
	}
	for _, f := range result.JurisdictionRisks {
		for _, s := range f.Signals {
			run.Results = append(run.Results, r.jurisdictionResult(f, s))
		}
	}

	r.analyses = append(r.analyses, map[string]interface{}{
		"analysis_id":        result.AnalysisID,
		"overall_risk_level": string(result.OverallRiskLevel),
		"bluf":               result.ExecutiveSummary.BottomLine,
		"action_required":    result.ExecutiveSummary.ActionRequired,
	})
	run.Properties = sarif.PropertyBag{"analyses": r.analyses}

	if added := len(run.Results) - before; added > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.Int("results_count", added),
			zap.Duration("duration", time.Since(startTime)),
		)
	}
	return nil
}

// Close writes the SARIF log and closes the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := closeAfter(r.writer, encoder.Encode(r.log)); err != nil {
		r.logger.Error("Failed to write SARIF report", zap.Error(err))
		return err
	}
	return nil
}

func (r *SARIFReporter) vulnerabilityResult(v schemas.AttributedVulnerability) *sarif.Result {
	ruleID := r.ensureRule(ruleDefinition{
		BaseID:      r.sanitizeRuleName(v.ID),
		Name:        v.ID,
		Description: v.Summary,
		HelpURI:     nvdDetailURL + v.ID,
		Tags:        []string{"security", "vulnerability", strings.ToLower(v.Severity.String())},
	})

	text := fmt.Sprintf("%s (CVSS %.1f, %s) affects %s", v.ID, v.Score, v.Severity, componentLabel(v.Component, v.ComponentVersion))
	if v.Summary != "" {
		text += ": " + v.Summary
	}
	return &sarif.Result{
		RuleID:    ruleID,
		Message:   &sarif.Message{Text: pString(text)},
		Level:     severityLevel(v.Severity),
		Locations: componentLocations(v.Component, v.ComponentVersion, v.PackageURL),
		Properties: sarif.PropertyBag{
			"cvss_score":     v.Score,
			"severity":       v.Severity.String(),
			"scoring_scheme": string(v.ScoringScheme),
		},
	}
}

func (r *SARIFReporter) jurisdictionResult(f schemas.ComponentFinding, s schemas.JurisdictionSignal) *sarif.Result {
	ruleID := r.ensureRule(ruleDefinition{
		BaseID:      JurisdictionRulePrefix + r.sanitizeRuleName(s.Jurisdiction),
		Name:        "Restricted jurisdiction: " + s.Jurisdiction,
		Description: fmt.Sprintf("Component metadata links the package to %s, a sanctioned or restricted jurisdiction.", s.Jurisdiction),
		Tags:        []string{"compliance", "jurisdiction"},
	})

	text := fmt.Sprintf("%s is linked to %s via %s", componentLabel(f.Name, f.Version), s.Jurisdiction, s.Source)
	if s.Domain != "" {
		text += fmt.Sprintf(" (%s)", s.Domain)
	}
	level := sarif.LevelWarning
	if s.Confidence >= 0.8 {
		level = sarif.LevelError
	}
	return &sarif.Result{
		RuleID:    ruleID,
		Message:   &sarif.Message{Text: pString(text)},
		Level:     level,
		Locations: componentLocations(f.Name, f.Version, f.PackageURL),
		Properties: sarif.PropertyBag{
			"confidence":   s.Confidence,
			"jurisdiction": s.Jurisdiction,
			"source":       string(s.Source),
		},
	}
}

// sanitizeRuleName creates a standardized base name for a rule ID.
func (r *SARIFReporter) sanitizeRuleName(name string) string {
	sanitized := strings.ToUpper(name)
	sanitized = ruleIDSanitizer.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return "UNKNOWN"
	}
	return sanitized
}

// ensureRule registers def if it has not been seen and returns its rule ID.
// A base ID already taken by different content gets a numeric suffix.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(def ruleDefinition) string {
	fingerprint := def.fingerprint()
	if ruleID, exists := r.rulesByFingerprint[fingerprint]; exists {
		return ruleID
	}

	usage := r.ruleIDUsage[def.BaseID]
	r.ruleIDUsage[def.BaseID] = usage + 1

	ruleID := def.BaseID
	if usage > 0 {
		ruleID = fmt.Sprintf("%s-%d", def.BaseID, usage)
		r.logger.Debug("Rule ID collision detected, generated new ID with suffix",
			zap.String("base_id", def.BaseID),
			zap.String("final_id", ruleID),
		)
	}

	rule := &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(def.Name),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(def.Name)},
		Properties:       sarif.PropertyBag{"tags": def.Tags},
	}
	if def.Description != "" {
		rule.FullDescription = &sarif.MultiformatMessageString{Text: pString(def.Description)}
	}
	if def.HelpURI != "" {
		rule.HelpURI = pString(def.HelpURI)
	}

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, rule)
	r.rulesByFingerprint[fingerprint] = ruleID
	return ruleID
}

func componentLocations(name, version, purl string) []*sarif.Location {
	fqn := purl
	if fqn == "" {
		fqn = componentLabel(name, version)
	}
	return []*sarif.Location{{
		LogicalLocations: []*sarif.LogicalLocation{{
			Name:               pString(name),
			FullyQualifiedName: pString(fqn),
			Kind:               pString("package"),
		}},
	}}
}

func componentLabel(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

func severityLevel(s schemas.Severity) sarif.Level {
	switch s {
	case schemas.SeverityCritical, schemas.SeverityHigh:
		return sarif.LevelError
	case schemas.SeverityMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value.
func pString(s string) *string {
	return &s
}
