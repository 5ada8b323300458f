package service

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/blob"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
)

// Components holds the initialized collaborators of a Service and owns their
// lifecycle.
type Components struct {
	// Source is nil when vulnerability lookups are disabled.
	Source schemas.VulnerabilitySource
	// Blob is nil unless storage was requested.
	Blob blob.Store
	// Audit is nil when audit records are disabled.
	Audit   schemas.AuditStore
	Metrics *observability.Metrics

	// closers run in reverse order on Shutdown.
	closers []func() error
}

func (c *Components) onShutdown(name string, fn func() error) {
	c.closers = append(c.closers, func() error {
		if err := fn(); err != nil {
			observability.GetLogger().Warn("Error during component shutdown.", zap.String("component", name), zap.Error(err))
			return err
		}
		return nil
	})
}

// Shutdown releases every component, newest first. It is safe to call on a
// partially initialized value and more than once.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
	logger.Debug("All components shut down.")
}
