package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps one audit row per SBOM id. Re-analysing an SBOM
// replaces its row.
type PostgresStore struct {
	pool  DBPool
	table string
	log   *zap.Logger
}

var _ schemas.AuditStore = (*PostgresStore)(nil)

// OpenPostgres creates a connection pool for url and prepares the store.
func OpenPostgres(ctx context.Context, url, table string, logger *zap.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres pool config: %w", err)
	}
	// Audit writes are one small upsert per analysis.
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s, err := NewPostgresStore(ctx, pool, table, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool and creates the audit table when it
// is missing.
func NewPostgresStore(ctx context.Context, pool DBPool, table string, logger *zap.Logger) (*PostgresStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		log:   logger.Named("store.postgres"),
	}

	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            sbom_id TEXT PRIMARY KEY,
            analysis_id TEXT NOT NULL,
            analyzed_at TIMESTAMPTZ NOT NULL,
            risk_level TEXT NOT NULL,
            total_components INTEGER NOT NULL,
            ofac_risk_components INTEGER NOT NULL,
            critical_cves INTEGER NOT NULL,
            high_cves INTEGER NOT NULL,
            output_key TEXT NOT NULL
        );
    `, s.table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) PutRecord(ctx context.Context, r schemas.AuditRecord) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (sbom_id, analysis_id, analyzed_at, risk_level, total_components, ofac_risk_components, critical_cves, high_cves, output_key)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (sbom_id) DO UPDATE SET
            analysis_id = EXCLUDED.analysis_id,
            analyzed_at = EXCLUDED.analyzed_at,
            risk_level = EXCLUDED.risk_level,
            total_components = EXCLUDED.total_components,
            ofac_risk_components = EXCLUDED.ofac_risk_components,
            critical_cves = EXCLUDED.critical_cves,
            high_cves = EXCLUDED.high_cves,
            output_key = EXCLUDED.output_key;
    `, s.table)

	_, err := s.pool.Exec(ctx, query,
		r.SBOMID, r.AnalysisID, r.Timestamp.UTC(), string(r.RiskLevel),
		r.TotalComponents, r.JurisdictionRiskComponents,
		r.CriticalVulnerabilities, r.HighVulnerabilities, r.OutputKey,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert audit record %s: %w", r.SBOMID, err)
	}
	s.log.Debug("Audit record stored.", zap.String("sbom_id", r.SBOMID))
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, sbomID string) (*schemas.AuditRecord, error) {
	query := fmt.Sprintf(`
        SELECT sbom_id, analysis_id, analyzed_at, risk_level, total_components, ofac_risk_components, critical_cves, high_cves, output_key
        FROM %s
        WHERE sbom_id = $1;
    `, s.table)

	var r schemas.AuditRecord
	var level string
	err := s.pool.QueryRow(ctx, query, sbomID).Scan(
		&r.SBOMID, &r.AnalysisID, &r.Timestamp, &level,
		&r.TotalComponents, &r.JurisdictionRiskComponents,
		&r.CriticalVulnerabilities, &r.HighVulnerabilities, &r.OutputKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("audit record %s: %w", sbomID, schemas.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query audit record %s: %w", sbomID, err)
	}
	r.RiskLevel = schemas.RiskLevel(level)
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
