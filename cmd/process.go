package cmd

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newProcessCmd(factory service.ComponentFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "process <key>",
		Short: "Analyze a stored SBOM and write the result next to it",
		Long: `Fetches the SBOM stored under <key> from the configured blob store, writes
the analysis to the output prefix and records an audit entry. Keys outside
the input prefix, or without a .json suffix, are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runProcess(ctx, cmd, cfg, args[0], factory, observability.GetLogger())
		},
	}
}

func runProcess(ctx context.Context, cmd *cobra.Command, cfg config.Interface, key string, factory service.ComponentFactory, logger *zap.Logger) error {
	components, err := factory.Create(ctx, cfg, service.Options{Storage: true, Audit: true}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	outcome, err := service.New(cfg, components, Version, logger).ProcessObject(ctx, key)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
