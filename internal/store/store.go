// Package store persists audit records of completed analyses in PostgreSQL
// or SQLite.
package store

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
)

// Supported audit drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultTable is the audit table name used when none is configured.
const DefaultTable = "sbom_analysis_audit"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func validateTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid audit table name %q", table)
	}
	return nil
}

// Open connects to the audit database described by cfg and makes sure the
// audit table exists.
func Open(ctx context.Context, cfg config.AuditConfig, logger *zap.Logger) (schemas.AuditStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	switch cfg.Driver {
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.URL, table, logger)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.URL, table, logger)
	default:
		return nil, fmt.Errorf("unsupported audit driver: %s", cfg.Driver)
	}
}

// RecordFromResult condenses a result into the audit record stored for
// sbomID.
func RecordFromResult(sbomID, outputKey string, result *schemas.AnalysisResult) schemas.AuditRecord {
	return schemas.AuditRecord{
		SBOMID:                     sbomID,
		AnalysisID:                 result.AnalysisID,
		Timestamp:                  result.AnalysisTimestamp.UTC(),
		RiskLevel:                  result.OverallRiskLevel,
		TotalComponents:            result.Summary.TotalComponents,
		JurisdictionRiskComponents: len(result.JurisdictionRisks),
		CriticalVulnerabilities:    len(result.Vulnerabilities.Critical),
		HighVulnerabilities:        len(result.Vulnerabilities.High),
		OutputKey:                  outputKey,
	}
}
