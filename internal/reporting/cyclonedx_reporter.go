package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// Property names attached to components in the CycloneDX output.
const (
	PropertyRiskScore    = "sbomrisk:risk_score"
	PropertyJurisdiction = "sbomrisk:jurisdiction"
	PropertyRiskLevel    = "sbomrisk:overall_risk_level"
	PropertyBottomLine   = "sbomrisk:bluf"
)

// CycloneDXReporter emits the findings as a CycloneDX BOM: every finding
// becomes a component and every retained vulnerability a VEX entry that
// affects it. Output is written on Close.
type CycloneDXReporter struct {
	mu          sync.Mutex
	writer      io.WriteCloser
	toolVersion string

	components []cdx.Component
	vulns      []cdx.Vulnerability
	properties []cdx.Property
	seen       map[string]bool
	vulnIndex  map[string]int
	timestamp  time.Time
}

func NewCycloneDXReporter(writer io.WriteCloser, toolVersion string) *CycloneDXReporter {
	return &CycloneDXReporter{
		writer:      writer,
		toolVersion: toolVersion,
		components:  []cdx.Component{},
		vulns:       []cdx.Vulnerability{},
		seen:        make(map[string]bool),
		vulnIndex:   make(map[string]int),
	}
}

func (r *CycloneDXReporter) Write(result *schemas.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("cannot write a nil analysis result")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if result.AnalysisTimestamp.After(r.timestamp) {
		r.timestamp = result.AnalysisTimestamp
	}
	r.properties = append(r.properties,
		cdx.Property{Name: PropertyRiskLevel, Value: string(result.OverallRiskLevel)},
		cdx.Property{Name: PropertyBottomLine, Value: result.ExecutiveSummary.BottomLine},
	)

	for _, f := range result.Findings {
		ref := bomRef(f.Name, f.Version, f.PackageURL)
		if r.seen[ref] {
			continue
		}
		r.seen[ref] = true

		props := []cdx.Property{{Name: PropertyRiskScore, Value: strconv.FormatFloat(f.RiskScore, 'f', 2, 64)}}
		for _, s := range f.Signals {
			props = append(props, cdx.Property{Name: PropertyJurisdiction, Value: s.Jurisdiction})
		}
		r.components = append(r.components, cdx.Component{
			BOMRef:     ref,
			Type:       cdx.ComponentTypeLibrary,
			Name:       f.Name,
			Version:    f.Version,
			PackageURL: f.PackageURL,
			Properties: &props,
		})
	}

	for _, list := range [][]schemas.AttributedVulnerability{result.Vulnerabilities.Critical, result.Vulnerabilities.High} {
		for _, v := range list {
			r.addVulnerability(v)
		}
	}
	return nil
}

// addVulnerability records v once per ID; further components it affects are
// appended to the existing entry.
func (r *CycloneDXReporter) addVulnerability(v schemas.AttributedVulnerability) {
	affects := cdx.Affects{Ref: bomRef(v.Component, v.ComponentVersion, v.PackageURL)}
	if i, ok := r.vulnIndex[v.ID]; ok {
		existing := r.vulns[i].Affects
		for _, a := range *existing {
			if a.Ref == affects.Ref {
				return
			}
		}
		*existing = append(*existing, affects)
		return
	}

	score := v.Score
	r.vulnIndex[v.ID] = len(r.vulns)
	r.vulns = append(r.vulns, cdx.Vulnerability{
		BOMRef: v.ID,
		ID:     v.ID,
		Source: &cdx.Source{Name: "NVD", URL: nvdDetailURL + v.ID},
		Ratings: &[]cdx.VulnerabilityRating{{
			Source:   &cdx.Source{Name: "NVD"},
			Score:    &score,
			Severity: cdxSeverity(v.Severity),
			Method:   cdxMethod(v.ScoringScheme),
		}},
		Description: v.Summary,
		Published:   v.PublishedAt,
		Updated:     v.UpdatedAt,
		Affects:     &[]cdx.Affects{affects},
	})
}

func (r *CycloneDXReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{{
				Type:    cdx.ComponentTypeApplication,
				Name:    ToolName,
				Version: r.toolVersion,
			}},
		},
	}
	if !r.timestamp.IsZero() {
		bom.Metadata.Timestamp = r.timestamp.UTC().Format(time.RFC3339)
	}
	if len(r.properties) > 0 {
		bom.Metadata.Properties = &r.properties
	}
	bom.Components = &r.components
	bom.Vulnerabilities = &r.vulns

	err := cdx.NewBOMEncoder(r.writer, cdx.BOMFileFormatJSON).SetPretty(true).Encode(bom)
	return closeAfter(r.writer, err)
}

func bomRef(name, version, purl string) string {
	if purl != "" {
		return purl
	}
	return componentLabel(name, version)
}

func cdxSeverity(s schemas.Severity) cdx.Severity {
	switch s {
	case schemas.SeverityCritical:
		return cdx.SeverityCritical
	case schemas.SeverityHigh:
		return cdx.SeverityHigh
	case schemas.SeverityMedium:
		return cdx.SeverityMedium
	case schemas.SeverityLow:
		return cdx.SeverityLow
	default:
		return cdx.SeverityUnknown
	}
}

func cdxMethod(s schemas.ScoringScheme) cdx.ScoringMethod {
	switch s {
	case schemas.SchemeCVSSv40:
		return cdx.ScoringMethodCVSSv4
	case schemas.SchemeCVSSv31:
		return cdx.ScoringMethodCVSSv31
	case schemas.SchemeCVSSv30:
		return cdx.ScoringMethodCVSSv3
	case schemas.SchemeCVSSv2:
		return cdx.ScoringMethodCVSSv2
	default:
		return cdx.ScoringMethodOther
	}
}
