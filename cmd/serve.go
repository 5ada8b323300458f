package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/internal/api"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/service"
)

// serverRunner starts the HTTP server; tests replace it to avoid binding a
// port.
var serverRunner = func(ctx context.Context, s *api.Server) error { return s.Run(ctx) }

func newServeCmd(factory service.ComponentFactory) *cobra.Command {
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, addr, factory, observability.GetLogger())
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address. (Overrides config/env)")
	return serveCmd
}

func runServe(ctx context.Context, cfg config.Interface, addr string, factory service.ComponentFactory, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	components, err := factory.Create(ctx, cfg, service.Options{Storage: true, Audit: true, Registerer: registry}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	svc := service.New(cfg, components, Version, logger)
	handlers := api.NewHandlers(svc, cfg.Storage().Bucket, cfg.Analysis().MaxDocumentBytes, Version, logger)

	serverCfg := cfg.Server()
	if addr != "" {
		serverCfg.Addr = addr
	}
	return serverRunner(ctx, api.NewServer(serverCfg, api.NewRouter(handlers, registry, logger), logger))
}
