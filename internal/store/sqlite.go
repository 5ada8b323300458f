package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// SQLiteStore is the single-file audit store for local runs.
type SQLiteStore struct {
	db    *sql.DB
	table string
	log   *zap.Logger
}

var _ schemas.AuditStore = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and creates the audit
// table when it is missing.
func OpenSQLite(ctx context.Context, path, table string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite audit store requires a database path")
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SQLiteStore{db: db, table: table, log: logger.Named("store.sqlite")}

	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            sbom_id TEXT PRIMARY KEY,
            analysis_id TEXT NOT NULL,
            analyzed_at TEXT NOT NULL,
            risk_level TEXT NOT NULL,
            total_components INTEGER NOT NULL,
            ofac_risk_components INTEGER NOT NULL,
            critical_cves INTEGER NOT NULL,
            high_cves INTEGER NOT NULL,
            output_key TEXT NOT NULL
        );
    `, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) PutRecord(ctx context.Context, r schemas.AuditRecord) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (sbom_id, analysis_id, analyzed_at, risk_level, total_components, ofac_risk_components, critical_cves, high_cves, output_key)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (sbom_id) DO UPDATE SET
            analysis_id = excluded.analysis_id,
            analyzed_at = excluded.analyzed_at,
            risk_level = excluded.risk_level,
            total_components = excluded.total_components,
            ofac_risk_components = excluded.ofac_risk_components,
            critical_cves = excluded.critical_cves,
            high_cves = excluded.high_cves,
            output_key = excluded.output_key;
    `, s.table)

	_, err := s.db.ExecContext(ctx, query,
		r.SBOMID, r.AnalysisID, r.Timestamp.UTC().Format(time.RFC3339Nano), string(r.RiskLevel),
		r.TotalComponents, r.JurisdictionRiskComponents,
		r.CriticalVulnerabilities, r.HighVulnerabilities, r.OutputKey,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert audit record %s: %w", r.SBOMID, err)
	}
	s.log.Debug("Audit record stored.", zap.String("sbom_id", r.SBOMID))
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, sbomID string) (*schemas.AuditRecord, error) {
	query := fmt.Sprintf(`
        SELECT sbom_id, analysis_id, analyzed_at, risk_level, total_components, ofac_risk_components, critical_cves, high_cves, output_key
        FROM %s
        WHERE sbom_id = ?;
    `, s.table)

	var r schemas.AuditRecord
	var analyzedAt, level string
	err := s.db.QueryRowContext(ctx, query, sbomID).Scan(
		&r.SBOMID, &r.AnalysisID, &analyzedAt, &level,
		&r.TotalComponents, &r.JurisdictionRiskComponents,
		&r.CriticalVulnerabilities, &r.HighVulnerabilities, &r.OutputKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit record %s: %w", sbomID, schemas.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query audit record %s: %w", sbomID, err)
	}
	r.Timestamp, err = time.Parse(time.RFC3339Nano, analyzedAt)
	if err != nil {
		return nil, fmt.Errorf("audit record %s has a malformed timestamp: %w", sbomID, err)
	}
	r.RiskLevel = schemas.RiskLevel(level)
	return &r, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
