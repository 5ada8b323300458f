package schemas

import (
	"context"
	"io"
	"time"
)

// -- Collaborator Interfaces --

// VulnerabilitySource looks up known vulnerabilities for a component.
// Implementations return records ordered by descending score and restricted
// to HIGH and CRITICAL severity. Errors are reported, never panicked, and the
// caller decides how to degrade.
type VulnerabilitySource interface {
	Lookup(ctx context.Context, query VulnerabilityQuery) ([]VulnerabilityRecord, error)
}

// BlobStore retrieves raw SBOM documents and stores analysis output.
type BlobStore interface {
	// Open returns a reader for the object at key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Put writes data to key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// AuditRecord is the condensed, queryable trace of one analysis.
type AuditRecord struct {
	SBOMID                     string    `json:"sbom_id"`
	AnalysisID                 string    `json:"analysis_id"`
	Timestamp                  time.Time `json:"timestamp"`
	RiskLevel                  RiskLevel `json:"risk_level"`
	TotalComponents            int       `json:"total_components"`
	JurisdictionRiskComponents int       `json:"ofac_risk_components"`
	CriticalVulnerabilities    int       `json:"critical_cves"`
	HighVulnerabilities        int       `json:"high_cves"`
	OutputKey                  string    `json:"output_key"`
}

// AuditStore persists audit records keyed by SBOM id. Writes are best effort
// from the caller's point of view.
type AuditStore interface {
	PutRecord(ctx context.Context, record AuditRecord) error
	GetRecord(ctx context.Context, sbomID string) (*AuditRecord, error)
	Close() error
}
