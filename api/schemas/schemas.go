package schemas

import "time"

// -- Analysis Result Schemas --

// Ecosystem is the package ecosystem a component belongs to, derived from its
// package-url type.
type Ecosystem string

const (
	EcosystemPyPI  Ecosystem = "pypi"
	EcosystemNPM   Ecosystem = "npm"
	EcosystemMaven Ecosystem = "maven"
	EcosystemNuGet Ecosystem = "nuget"
	EcosystemOther Ecosystem = "other"
)

// Known reports whether vulnerability data can be looked up for the ecosystem.
func (e Ecosystem) Known() bool {
	switch e {
	case EcosystemPyPI, EcosystemNPM, EcosystemMaven, EcosystemNuGet:
		return true
	}
	return false
}

// RiskLevel is the coarse verdict for a whole document.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// MaxFindingVulnerabilities is how many records a ComponentFinding carries.
const MaxFindingVulnerabilities = 5

// ComponentFinding is the per component assessment. RiskScore is always
// within [0, 1].
type ComponentFinding struct {
	Name            string                `json:"name" yaml:"name"`
	Version         string                `json:"version" yaml:"version"`
	PackageURL      string                `json:"purl" yaml:"purl"`
	Ecosystem       Ecosystem             `json:"ecosystem" yaml:"ecosystem"`
	Signals         []JurisdictionSignal  `json:"risk_factors" yaml:"risk_factors"`
	Vulnerabilities []VulnerabilityRecord `json:"vulnerabilities" yaml:"vulnerabilities"`
	RiskScore       float64               `json:"risk_score" yaml:"risk_score"`
}

// AttributedVulnerability is a vulnerability annotated with the component it
// belongs to, used in the flattened CRITICAL and HIGH lists.
type AttributedVulnerability struct {
	VulnerabilityRecord `yaml:",inline"`
	Component           string `json:"component" yaml:"component"`
	ComponentVersion    string `json:"component_version" yaml:"component_version"`
	PackageURL          string `json:"purl" yaml:"purl"`
}

// VulnerableComponentSummary condenses one component's vulnerability exposure.
type VulnerableComponentSummary struct {
	Name          string  `json:"name" yaml:"name"`
	Version       string  `json:"version" yaml:"version"`
	PackageURL    string  `json:"purl" yaml:"purl"`
	HighestScore  float64 `json:"highest_cvss_score" yaml:"highest_cvss_score"`
	CriticalCount int     `json:"critical_count" yaml:"critical_count"`
	HighCount     int     `json:"high_count" yaml:"high_count"`
}

// MaxVulnerableComponents caps VulnerabilityAnalysis.VulnerableComponents.
const MaxVulnerableComponents = 20

// VulnerabilityAnalysis aggregates vulnerability exposure over the document.
type VulnerabilityAnalysis struct {
	Critical                      []AttributedVulnerability    `json:"critical_cves" yaml:"critical_cves"`
	High                          []AttributedVulnerability    `json:"high_cves" yaml:"high_cves"`
	TotalFound                    int                          `json:"total_cves_found" yaml:"total_cves_found"`
	ComponentsWithVulnerabilities int                          `json:"components_with_cves" yaml:"components_with_cves"`
	VulnerableComponents          []VulnerableComponentSummary `json:"vulnerable_components" yaml:"vulnerable_components"`
	// LookupsFailed counts eligible components whose lookup returned an
	// error, deadline expiry included. LookupsSkipped counts those never
	// queried because the deadline had already passed. Either kind reports no
	// vulnerabilities without having been checked.
	LookupsFailed  int `json:"lookups_failed" yaml:"lookups_failed"`
	LookupsSkipped int `json:"lookups_skipped" yaml:"lookups_skipped"`
}

// TreeNode is one component placed at a depth of the dependency tree.
type TreeNode struct {
	Name            string `json:"name" yaml:"name"`
	PackageURL      string `json:"purl" yaml:"purl"`
	DependencyCount int    `json:"dependencies" yaml:"dependencies"`
}

// DependencyGraphStats describes the dependency hierarchy reconstructed from
// the document. DepthDistribution values always sum to TotalDependencies.
type DependencyGraphStats struct {
	TotalDependencies      int                `json:"total_dependencies" yaml:"total_dependencies"`
	MaxDepth               int                `json:"max_depth" yaml:"max_depth"`
	DepthDistribution      map[int]int        `json:"depth_distribution" yaml:"depth_distribution"`
	DirectDependencies     int                `json:"direct_dependencies" yaml:"direct_dependencies"`
	TransitiveDependencies int                `json:"transitive_dependencies" yaml:"transitive_dependencies"`
	Tree                   map[int][]TreeNode `json:"dependency_tree" yaml:"dependency_tree"`
}

// AnalysisSummary holds the headline counts of a run.
type AnalysisSummary struct {
	TotalComponents            int       `json:"total_components" yaml:"total_components"`
	PyPIComponents             int       `json:"pypi_components" yaml:"pypi_components"`
	NPMComponents              int       `json:"npm_components" yaml:"npm_components"`
	MavenComponents            int       `json:"maven_components" yaml:"maven_components"`
	NuGetComponents            int       `json:"nuget_components" yaml:"nuget_components"`
	OtherComponents            int       `json:"other_components" yaml:"other_components"`
	JurisdictionRiskComponents int       `json:"jurisdiction_risk_components" yaml:"jurisdiction_risk_components"`
	VulnerableComponents       int       `json:"vulnerable_components" yaml:"vulnerable_components"`
	RiskLevel                  RiskLevel `json:"risk_level" yaml:"risk_level"`
}

// ResultMetadata records where a result came from. It is attached by the
// service layer, never by the engine.
type ResultMetadata struct {
	SourceFile      string    `json:"source_file" yaml:"source_file"`
	OutputKey       string    `json:"output_key,omitempty" yaml:"output_key,omitempty"`
	AnalysisTimeUTC time.Time `json:"analysis_time_utc" yaml:"analysis_time_utc"`
	EngineVersion   string    `json:"engine_version" yaml:"engine_version"`
}

// AnalysisResult is the complete output of one analysis run. It is created
// once, never mutated after the analyzer returns it, and owned by the caller.
type AnalysisResult struct {
	AnalysisID        string                `json:"analysis_id" yaml:"analysis_id"`
	AnalysisTimestamp time.Time             `json:"analysis_timestamp" yaml:"analysis_timestamp"`
	Summary           AnalysisSummary       `json:"summary" yaml:"summary"`
	Findings          []ComponentFinding    `json:"findings" yaml:"findings"`
	JurisdictionRisks []ComponentFinding    `json:"ofac_risks" yaml:"ofac_risks"`
	Vulnerabilities   VulnerabilityAnalysis `json:"cve_analysis" yaml:"cve_analysis"`
	Dependencies      DependencyGraphStats  `json:"dependency_analysis" yaml:"dependency_analysis"`
	OverallRiskLevel  RiskLevel             `json:"overall_risk_level" yaml:"overall_risk_level"`
	ExecutiveSummary  ExecutiveSummary      `json:"executive_summary" yaml:"executive_summary"`
	Metadata          *ResultMetadata       `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// -- Executive Summary Schemas --

// KeyMetrics are the headline numbers shown to leadership.
type KeyMetrics struct {
	TotalComponents            int     `json:"total_components" yaml:"total_components"`
	VulnerableComponents       int     `json:"vulnerable_components" yaml:"vulnerable_components"`
	VulnerablePercentage       float64 `json:"vulnerable_percentage" yaml:"vulnerable_percentage"`
	CriticalVulnerabilities    int     `json:"critical_vulnerabilities" yaml:"critical_vulnerabilities"`
	HighVulnerabilities        int     `json:"high_vulnerabilities" yaml:"high_vulnerabilities"`
	JurisdictionRiskComponents int     `json:"ofac_risk_components" yaml:"ofac_risk_components"`
	MaxDependencyDepth         int     `json:"max_dependency_depth" yaml:"max_dependency_depth"`
	DirectDependencies         int     `json:"direct_dependencies" yaml:"direct_dependencies"`
	TransitiveDependencies     int     `json:"transitive_dependencies" yaml:"transitive_dependencies"`
	// UnverifiedComponents were not checked for vulnerabilities because their
	// lookup failed or was skipped.
	UnverifiedComponents int `json:"unverified_components" yaml:"unverified_components"`
}

// TopRiskKind distinguishes the entries of ExecutiveSummary.TopRisks.
type TopRiskKind string

const (
	TopRiskCriticalVulnerability TopRiskKind = "CRITICAL_CVE"
	TopRiskJurisdiction          TopRiskKind = "OFAC_RISK"
)

// TopRisk is one ranked entry of the executive summary.
type TopRisk struct {
	Kind         TopRiskKind `json:"type" yaml:"type"`
	Component    string      `json:"component" yaml:"component"`
	CVEID        string      `json:"cve_id,omitempty" yaml:"cve_id,omitempty"`
	Score        float64     `json:"cvss_score,omitempty" yaml:"cvss_score,omitempty"`
	Jurisdiction string      `json:"country,omitempty" yaml:"country,omitempty"`
	Description  string      `json:"description" yaml:"description"`
}

// ExecutiveSummary is a read only, decision oriented view over an
// AnalysisResult.
type ExecutiveSummary struct {
	BottomLine     string     `json:"bluf" yaml:"bluf"`
	RiskLevel      RiskLevel  `json:"risk_level" yaml:"risk_level"`
	Recommendation string     `json:"recommendation" yaml:"recommendation"`
	KeyMetrics     KeyMetrics `json:"key_metrics" yaml:"key_metrics"`
	TopRisks       []TopRisk  `json:"top_risks" yaml:"top_risks"`
	ActionRequired bool       `json:"action_required" yaml:"action_required"`
}
