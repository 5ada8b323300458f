package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/reporting"
	"github.com/xkilldash9x/sbomrisk/internal/service"
)

type analyzeOptions struct {
	output  string
	format  string
	offline bool
	timeout time.Duration
}

func newAnalyzeCmd(factory service.ComponentFactory) *cobra.Command {
	opts := analyzeOptions{}
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Analyze a CycloneDX SBOM and report its risk",
		Long: `Reads a CycloneDX JSON SBOM from a file, or from stdin when the argument is
"-", screens every component for restricted-jurisdiction signals, looks up
HIGH and CRITICAL vulnerabilities, and writes the analysis report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAnalyze(ctx, cmd, cfg, args[0], opts, factory, observability.GetLogger())
		},
	}

	analyzeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path. If unset, the report is written to stdout.")
	analyzeCmd.Flags().StringVarP(&opts.format, "format", "f", reporting.FormatJSON, "Report format: json, yaml, sarif or cyclonedx.")
	analyzeCmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip vulnerability lookups and report jurisdiction signals only.")
	analyzeCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Overall analysis timeout. (Overrides config/env)")
	return analyzeCmd
}

// runAnalyze holds the testable logic of the analyze command.
func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg config.Interface, input string, opts analyzeOptions, factory service.ComponentFactory, logger *zap.Logger) error {
	if opts.offline {
		cfg.SetVulnerabilitiesEnabled(false)
	}
	if opts.timeout > 0 {
		cfg.SetAnalysisTimeout(opts.timeout)
	}

	if !reporting.Supported(opts.format) {
		return fmt.Errorf("unsupported output format: %s", opts.format)
	}

	r, source, err := openInput(cmd, input)
	if err != nil {
		return err
	}
	defer r.Close()

	components, err := factory.Create(ctx, cfg, service.Options{}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	svc := service.New(cfg, components, Version, logger)
	result, err := svc.AnalyzeReader(ctx, r, source)
	if err != nil {
		return err
	}

	if err := writeReport(cmd, result, opts); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", result.ExecutiveSummary.BottomLine)
	if opts.output != "" {
		logger.Info("Report written.", zap.String("path", opts.output), zap.String("format", opts.format))
	}
	return nil
}

func writeReport(cmd *cobra.Command, result *schemas.AnalysisResult, opts analyzeOptions) error {
	var reporter reporting.Reporter
	var err error
	if opts.output == "" {
		reporter, err = reporting.NewWithWriter(opts.format, nopWriteCloser{cmd.OutOrStdout()}, Version)
	} else {
		reporter, err = reporting.New(opts.format, opts.output, Version)
	}
	if err != nil {
		return err
	}
	if err := reporter.Write(result); err != nil {
		_ = reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return reporter.Close()
}

func openInput(cmd *cobra.Command, input string) (io.ReadCloser, string, error) {
	if input == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open SBOM: %w", err)
	}
	return f, input, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
