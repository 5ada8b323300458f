package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/api"
	"github.com/xkilldash9x/sbomrisk/internal/blob"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/service"
)

const testSBOM = `{
  "bomFormat": "CycloneDX",
  "components": [
    {
      "name": "left-pad",
      "version": "1.3.0",
      "purl": "pkg:npm/left-pad@1.3.0",
      "properties": [{"name": "maintainer_email", "value": "dev@mail.ru"}]
    }
  ]
}`

// MockComponentFactory mocks service.ComponentFactory.
type MockComponentFactory struct {
	mock.Mock
}

func (m *MockComponentFactory) Create(ctx context.Context, cfg config.Interface, opts service.Options, logger *zap.Logger) (*service.Components, error) {
	args := m.Called(ctx, cfg, opts, logger)
	c, _ := args.Get(0).(*service.Components)
	return c, args.Error(1)
}

func resetForTest(t *testing.T) {
	t.Helper()
	cfgFile = ""
	t.Setenv("SBOMRISK_CACHE_ENABLED", "false")
}

func executeCommand(t *testing.T, factory service.ComponentFactory, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetForTest(t)
	root := newRootCmd(factory)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeSBOM(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bom.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := executeCommand(t, new(MockComponentFactory), "", "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("sbomrisk version %s\n", Version), out)

	out, _, err = executeCommand(t, new(MockComponentFactory), "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "sbomrisk version "+Version)
}

func TestAnalyze_StdoutJSON(t *testing.T) {
	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.Anything, service.Options{}, mock.Anything).
		Return(&service.Components{}, nil).Once()

	out, errOut, err := executeCommand(t, factory, "", "analyze", "--offline", writeSBOM(t, testSBOM))
	require.NoError(t, err)

	var result schemas.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, schemas.RiskHigh, result.OverallRiskLevel)
	require.Len(t, result.JurisdictionRisks, 1)
	assert.Equal(t, "Russia", result.JurisdictionRisks[0].Signals[0].Jurisdiction)
	assert.Contains(t, errOut, "HIGH RISK")
	factory.AssertExpectations(t)
}

func TestAnalyze_FlagsReachConfig(t *testing.T) {
	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.MatchedBy(func(cfg config.Interface) bool {
		return !cfg.Analysis().VulnerabilitiesEnabled && cfg.Analysis().Timeout == 3*time.Second
	}), mock.Anything, mock.Anything).Return(&service.Components{}, nil).Once()

	_, _, err := executeCommand(t, factory, testSBOM, "analyze", "--offline", "--timeout", "3s", "-")
	require.NoError(t, err)
	factory.AssertExpectations(t)
}

func TestAnalyze_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SBOMRISK_ANALYSIS_CONCURRENCY", "9")
	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.MatchedBy(func(cfg config.Interface) bool {
		return cfg.Analysis().Concurrency == 9
	}), mock.Anything, mock.Anything).Return(&service.Components{}, nil).Once()

	_, _, err := executeCommand(t, factory, testSBOM, "analyze", "--offline", "-")
	require.NoError(t, err)
	factory.AssertExpectations(t)
}

func TestAnalyze_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sbomrisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  flat_direct_cap: 3\n"), 0o644))

	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.MatchedBy(func(cfg config.Interface) bool {
		return cfg.Analysis().FlatDirectCap == 3
	}), mock.Anything, mock.Anything).Return(&service.Components{}, nil).Once()

	_, _, err := executeCommand(t, factory, testSBOM, "--config", path, "analyze", "--offline", "-")
	require.NoError(t, err)
	factory.AssertExpectations(t)
}

func TestAnalyze_WritesReportFile(t *testing.T) {
	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&service.Components{}, nil)

	output := filepath.Join(t.TempDir(), "report.sarif")
	out, _, err := executeCommand(t, factory, testSBOM, "analyze", "--offline", "-f", "sarif", "-o", output, "-")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "2.1.0"`)
	assert.Contains(t, string(data), "SBOMRISK-JURISDICTION-")
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("invalid document exits with input error", func(t *testing.T) {
		factory := new(MockComponentFactory)
		factory.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&service.Components{}, nil)

		_, _, err := executeCommand(t, factory, `{"bomFormat":"CycloneDX"}`, "analyze", "--offline", "-")
		require.Error(t, err)
		assert.ErrorIs(t, err, schemas.ErrInvalidDocument)
		assert.Equal(t, ExitInputError, ExitCode(err))
	})

	t.Run("unsupported format fails before initialization", func(t *testing.T) {
		factory := new(MockComponentFactory)
		_, _, err := executeCommand(t, factory, testSBOM, "analyze", "--format", "html", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format: html")
		factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := executeCommand(t, new(MockComponentFactory), "", "analyze", filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Equal(t, ExitFailure, ExitCode(err))
	})

	t.Run("factory failure", func(t *testing.T) {
		factory := new(MockComponentFactory)
		factory.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no cache"))
		_, _, err := executeCommand(t, factory, testSBOM, "analyze", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize components")
	})

	t.Run("requires one argument", func(t *testing.T) {
		_, _, err := executeCommand(t, new(MockComponentFactory), "", "analyze")
		require.Error(t, err)
	})
}

func TestProcess(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sboms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sboms", "web.json"), []byte(testSBOM), 0o644))
	fs, err := blob.NewFSStore(root, nil)
	require.NoError(t, err)

	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.Anything, service.Options{Storage: true, Audit: true}, mock.Anything).
		Return(&service.Components{Blob: fs}, nil)

	out, _, err := executeCommand(t, factory, "", "process", "sboms/web.json")
	require.NoError(t, err)
	var outcome service.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, service.StatusProcessed, outcome.Status)
	assert.Equal(t, "analysis/web_analysis.json", outcome.OutputKey)
	assert.FileExists(t, filepath.Join(root, "analysis", "web_analysis.json"))

	out, _, err = executeCommand(t, factory, "", "process", "notes/readme.txt")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, service.StatusSkipped, outcome.Status)
}

func TestServe(t *testing.T) {
	original := serverRunner
	t.Cleanup(func() { serverRunner = original })

	var started bool
	serverRunner = func(ctx context.Context, s *api.Server) error {
		started = s != nil
		return nil
	}

	factory := new(MockComponentFactory)
	factory.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(opts service.Options) bool {
		return opts.Storage && opts.Audit && opts.Registerer != nil
	}), mock.Anything).Return(&service.Components{}, nil).Once()

	_, _, err := executeCommand(t, factory, "", "serve", "--addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.True(t, started)
	factory.AssertExpectations(t)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitOK, ExitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, ExitInputError, ExitCode(fmt.Errorf("%w: x", schemas.ErrDocumentTooLarge)))
	assert.Equal(t, ExitInputError, ExitCode(schemas.ErrInvalidDocument))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, config.Interface(cfg)))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
