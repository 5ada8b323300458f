package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/internal/blob"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
)

// Options selects which optional components Create builds.
type Options struct {
	// Storage opens the configured blob store.
	Storage bool
	// Audit opens the audit store when the configuration enables it.
	Audit bool
	// Registerer receives the metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer
}

// ComponentFactory creates the set of components a command needs. It exists
// so commands can be tested without real backends.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (*Components, error)
}

type concreteFactory struct{}

// NewComponentFactory creates the production component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create builds the components. On failure everything already built is shut
// down before the error is returned.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(err))
			c.Shutdown()
		}
	}()

	if opts.Registerer != nil {
		c.Metrics = observability.NewMetrics(opts.Registerer)
	} else {
		c.Metrics = observability.NopMetrics()
	}

	source, closeSource := InitializeVulnerabilitySource(cfg, c.Metrics, logger)
	c.Source = source
	c.onShutdown("vulnerability_cache", closeSource)

	if opts.Storage {
		bs, err := blob.New(ctx, cfg.Storage(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob store: %w", err)
		}
		c.Blob = bs
		c.onShutdown("blob_store", bs.Close)
		logger.Debug("Blob store initialized.", zap.String("backend", cfg.Storage().Backend))
	}

	if opts.Audit {
		audit, err := InitializeAuditStore(ctx, cfg.Audit(), logger)
		if err != nil {
			return nil, err
		}
		if audit != nil {
			c.Audit = audit
			c.onShutdown("audit_store", audit.Close)
		}
	}
	return c, nil
}
