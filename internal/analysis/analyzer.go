// Package analysis runs the SBOM risk assessment: it screens every component
// for restricted-jurisdiction signals and known vulnerabilities, reconstructs
// the dependency hierarchy and assembles the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/depgraph"
	"github.com/xkilldash9x/sbomrisk/internal/jurisdiction"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/risk"
	"github.com/xkilldash9x/sbomrisk/internal/summary"
	"github.com/xkilldash9x/sbomrisk/internal/vulndb"
)

// DefaultConcurrency bounds in-flight vulnerability lookups when the
// configuration does not.
const DefaultConcurrency = 4

// Analyzer holds no state between runs; one Analyzer may serve concurrent
// Analyze calls.
type Analyzer struct {
	source      schemas.VulnerabilitySource
	graph       *depgraph.Builder
	concurrency int
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalyzer creates an Analyzer. A nil source disables vulnerability
// lookups; nil metrics and logger are replaced with no-ops.
func NewAnalyzer(cfg config.AnalysisConfig, source schemas.VulnerabilitySource, metrics *observability.Metrics, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Analyzer{
		source:      source,
		graph:       depgraph.NewBuilder(cfg.FlatDirectCap),
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger.Named("analyzer"),
		now:         time.Now,
	}
}

// assessment is everything learned about one component, stored at the
// component's index so lookups may finish in any order.
type assessment struct {
	ecosystem schemas.Ecosystem
	signals   []schemas.JurisdictionSignal
	vulns     []schemas.VulnerabilityRecord
	lookup    lookupStatus
}

type lookupStatus int

const (
	lookupNone lookupStatus = iota
	lookupDone
	lookupFailed
	lookupSkipped
)

// Analyze assesses doc. The only error it returns wraps
// schemas.ErrInvalidDocument; lookup failures, including ones caused by ctx
// expiring, leave the affected components without vulnerability data.
func (a *Analyzer) Analyze(ctx context.Context, doc *schemas.Document) (*schemas.AnalysisResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", schemas.ErrInvalidDocument)
	}
	if doc.Components == nil {
		return nil, fmt.Errorf("%w: missing required field %q", schemas.ErrInvalidDocument, "components")
	}

	start := a.now()
	components := doc.Components
	assessments := make([]assessment, len(components))
	for i, c := range components {
		assessments[i] = assessment{
			ecosystem: ClassifyEcosystem(c.PackageURL),
			signals:   jurisdiction.Signals(c),
		}
	}

	a.lookupAll(ctx, components, assessments)
	graph := a.graph.Build(components)

	result := a.assemble(components, assessments, graph)
	result.AnalysisID = uuid.NewString()
	result.AnalysisTimestamp = start.UTC()
	result.ExecutiveSummary = summary.Synthesize(result)

	if unverified := result.ExecutiveSummary.KeyMetrics.UnverifiedComponents; unverified > 0 {
		a.logger.Warn("Some components were not checked for vulnerabilities.",
			zap.Int("failed", result.Vulnerabilities.LookupsFailed),
			zap.Int("skipped", result.Vulnerabilities.LookupsSkipped))
	}
	a.metrics.Analyses.WithLabelValues(string(result.OverallRiskLevel)).Inc()
	a.metrics.ComponentsAnalyzed.Add(float64(len(components)))
	a.logger.Info("Analysis complete.",
		zap.String("analysis_id", result.AnalysisID),
		zap.Int("components", len(components)),
		zap.Int("findings", len(result.Findings)),
		zap.String("risk_level", string(result.OverallRiskLevel)),
		zap.Duration("elapsed", a.now().Sub(start)))
	return result, nil
}

// lookupAll fans the eligible lookups out with bounded concurrency. Each
// goroutine writes only its own slot.
func (a *Analyzer) lookupAll(ctx context.Context, components []schemas.Component, assessments []assessment) {
	if a.source == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i := range components {
		c := components[i]
		eligible := assessments[i].ecosystem.Known() &&
			strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Version) != ""
		if !eligible {
			a.metrics.VulnLookups.WithLabelValues(observability.OutcomeSkipped).Inc()
			continue
		}
		q := schemas.VulnerabilityQuery{Name: c.Name, Version: c.Version, Ecosystem: assessments[i].ecosystem}
		g.Go(func() error {
			assessments[i].vulns, assessments[i].lookup = a.lookup(ctx, q)
			return nil
		})
	}
	_ = g.Wait()
}

// lookup never fails: every error is logged and becomes an empty result whose
// status records that the component went unchecked.
func (a *Analyzer) lookup(ctx context.Context, q schemas.VulnerabilityQuery) ([]schemas.VulnerabilityRecord, lookupStatus) {
	if err := ctx.Err(); err != nil {
		a.metrics.VulnLookups.WithLabelValues(observability.OutcomeFailed).Inc()
		a.logger.Warn("Skipping vulnerability lookup, analysis deadline reached.",
			zap.String("component", q.Name), zap.Error(err))
		return nil, lookupSkipped
	}

	start := time.Now()
	records, err := a.source.Lookup(ctx, q)
	a.metrics.VulnLookupDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.metrics.VulnLookups.WithLabelValues(observability.OutcomeFailed).Inc()
		var lerr *vulndb.LookupError
		if errors.As(err, &lerr) {
			a.logger.Warn("Vulnerability lookup failed, continuing without data.",
				zap.String("component", q.Name),
				zap.String("kind", string(lerr.Kind)),
				zap.Error(err))
		} else {
			a.logger.Error("Unexpected vulnerability source error, continuing without data.",
				zap.String("component", q.Name),
				zap.Error(err))
		}
		return nil, lookupFailed
	}

	// Sources are expected to filter and order already; both guarantees are
	// enforced here.
	kept := make([]schemas.VulnerabilityRecord, 0, len(records))
	for _, r := range records {
		if r.Severity.Retained() {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) == 0 {
		a.metrics.VulnLookups.WithLabelValues(observability.OutcomeEmpty).Inc()
		return nil, lookupDone
	}
	a.metrics.VulnLookups.WithLabelValues(observability.OutcomeFound).Inc()
	return kept, lookupDone
}

func (a *Analyzer) assemble(components []schemas.Component, assessments []assessment, graph schemas.DependencyGraphStats) *schemas.AnalysisResult {
	result := &schemas.AnalysisResult{
		Summary:           schemas.AnalysisSummary{TotalComponents: len(components)},
		Findings:          []schemas.ComponentFinding{},
		JurisdictionRisks: []schemas.ComponentFinding{},
		Vulnerabilities: schemas.VulnerabilityAnalysis{
			Critical:             []schemas.AttributedVulnerability{},
			High:                 []schemas.AttributedVulnerability{},
			VulnerableComponents: []schemas.VulnerableComponentSummary{},
		},
		Dependencies: graph,
	}
	va := &result.Vulnerabilities

	for i, c := range components {
		as := assessments[i]
		countEcosystem(&result.Summary, as.ecosystem)
		switch as.lookup {
		case lookupFailed:
			va.LookupsFailed++
		case lookupSkipped:
			va.LookupsSkipped++
		}

		top := risk.TopVulnerability(as.vulns)
		score := risk.ComponentScore(as.signals, top)

		if len(as.vulns) > 0 {
			va.ComponentsWithVulnerabilities++
			va.TotalFound += len(as.vulns)

			exposure := schemas.VulnerableComponentSummary{
				Name:         c.Name,
				Version:      c.Version,
				PackageURL:   c.PackageURL,
				HighestScore: top.Score,
			}
			for _, v := range as.vulns {
				attributed := schemas.AttributedVulnerability{
					VulnerabilityRecord: v,
					Component:           c.Name,
					ComponentVersion:    c.Version,
					PackageURL:          c.PackageURL,
				}
				switch v.Severity {
				case schemas.SeverityCritical:
					va.Critical = append(va.Critical, attributed)
					exposure.CriticalCount++
				case schemas.SeverityHigh:
					va.High = append(va.High, attributed)
					exposure.HighCount++
				}
			}
			if len(va.VulnerableComponents) < schemas.MaxVulnerableComponents {
				va.VulnerableComponents = append(va.VulnerableComponents, exposure)
			}
		}

		if score <= 0 && len(as.vulns) == 0 {
			continue
		}

		finding := schemas.ComponentFinding{
			Name:            c.Name,
			Version:         c.Version,
			PackageURL:      c.PackageURL,
			Ecosystem:       as.ecosystem,
			Signals:         as.signals,
			Vulnerabilities: firstN(as.vulns, schemas.MaxFindingVulnerabilities),
			RiskScore:       score,
		}
		if finding.Signals == nil {
			finding.Signals = []schemas.JurisdictionSignal{}
		}
		result.Findings = append(result.Findings, finding)
		if len(as.signals) > 0 {
			result.JurisdictionRisks = append(result.JurisdictionRisks, finding)
		}
	}

	result.Summary.JurisdictionRiskComponents = len(result.JurisdictionRisks)
	result.Summary.VulnerableComponents = va.ComponentsWithVulnerabilities
	result.OverallRiskLevel = risk.Level(risk.Exposure{
		Critical:             len(va.Critical),
		High:                 len(va.High),
		JurisdictionRisks:    len(result.JurisdictionRisks),
		VulnerableComponents: va.ComponentsWithVulnerabilities,
	})
	result.Summary.RiskLevel = result.OverallRiskLevel
	return result
}

func countEcosystem(s *schemas.AnalysisSummary, eco schemas.Ecosystem) {
	switch eco {
	case schemas.EcosystemPyPI:
		s.PyPIComponents++
	case schemas.EcosystemNPM:
		s.NPMComponents++
	case schemas.EcosystemMaven:
		s.MavenComponents++
	case schemas.EcosystemNuGet:
		s.NuGetComponents++
	default:
		s.OtherComponents++
	}
}

// firstN returns a copy of at most n records, never nil.
func firstN(records []schemas.VulnerabilityRecord, n int) []schemas.VulnerabilityRecord {
	if len(records) < n {
		n = len(records)
	}
	out := make([]schemas.VulnerabilityRecord, n)
	copy(out, records[:n])
	return out
}
