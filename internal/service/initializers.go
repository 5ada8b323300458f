package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/network"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/store"
	"github.com/xkilldash9x/sbomrisk/internal/vulndb"
)

// InitializeVulnerabilitySource builds the NVD client, wrapped in the lookup
// cache when one is configured. It returns a nil source when lookups are
// disabled. A cache that cannot be opened is logged and skipped; the cleanup
// func is never nil.
func InitializeVulnerabilitySource(cfg config.Interface, metrics *observability.Metrics, logger *zap.Logger) (schemas.VulnerabilitySource, func() error) {
	noop := func() error { return nil }
	if !cfg.Analysis().VulnerabilitiesEnabled {
		logger.Info("Vulnerability lookups disabled; only jurisdiction signals will be reported.")
		return nil, noop
	}

	clientCfg := network.NewDefaultClientConfig()
	clientCfg.Logger = logger.Named("httpclient")
	nvd := vulndb.NewNVDClient(cfg.NVD(), network.NewClient(clientCfg), logger)

	cacheCfg := cfg.Cache()
	if !cacheCfg.Enabled {
		return nvd, noop
	}
	cache, err := vulndb.OpenBadgerCache(cacheCfg.Dir, cacheCfg.TTL, logger)
	if err != nil {
		logger.Warn("Vulnerability cache unavailable, continuing without it.",
			zap.String("dir", cacheCfg.Dir), zap.Error(err))
		return nvd, noop
	}
	return vulndb.NewCachedSource(nvd, cache, metrics, logger), cache.Close
}

// InitializeAuditStore opens the audit database, or returns nil when audit
// records are disabled.
func InitializeAuditStore(ctx context.Context, cfg config.AuditConfig, logger *zap.Logger) (schemas.AuditStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	s, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}
	logger.Info("Audit store initialized.", zap.String("driver", cfg.Driver), zap.String("table", cfg.Table))
	return s, nil
}
