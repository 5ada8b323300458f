// Package service wires the analysis engine to its inputs and outputs: direct
// document analysis and the stored-object flow that fetches an SBOM, writes
// the result next to it and records an audit entry.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/analysis"
	"github.com/xkilldash9x/sbomrisk/internal/config"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
	"github.com/xkilldash9x/sbomrisk/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Suffixes of input documents and written results.
const (
	InputSuffix  = ".json"
	OutputSuffix = "_analysis.json"
)

// ErrStorageUnavailable is returned by ProcessObject when the service was
// built without a blob store.
var ErrStorageUnavailable = errors.New("blob storage is not configured")

// Outcome status values.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
)

// Outcome reports what ProcessObject did with a key.
type Outcome struct {
	Status     string                    `json:"status"`
	Message    string                    `json:"message"`
	InputKey   string                    `json:"input_key"`
	OutputKey  string                    `json:"output_key,omitempty"`
	AnalysisID string                    `json:"analysis_id,omitempty"`
	Summary    *schemas.AnalysisSummary  `json:"summary,omitempty"`
	Executive  *schemas.ExecutiveSummary `json:"executive_summary,omitempty"`
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	analyzer     *analysis.Analyzer
	blob         schemas.BlobStore
	audit        schemas.AuditStore
	metrics      *observability.Metrics
	logger       *zap.Logger
	timeout      time.Duration
	maxBytes     int64
	inputPrefix  string
	outputPrefix string
	version      string
	now          func() time.Time
}

// New builds a Service over components. version is recorded in result
// metadata.
func New(cfg config.Interface, c *Components, version string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	analysisCfg := cfg.Analysis()
	maxBytes := analysisCfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = schemas.DefaultMaxDocumentBytes
	}

	s := &Service{
		analyzer:     analysis.NewAnalyzer(analysisCfg, c.Source, metrics, logger),
		audit:        c.Audit,
		metrics:      metrics,
		logger:       logger.Named("service"),
		timeout:      analysisCfg.Timeout,
		maxBytes:     maxBytes,
		inputPrefix:  cfg.Storage().InputPrefix,
		outputPrefix: cfg.Storage().OutputPrefix,
		version:      version,
		now:          time.Now,
	}
	// Avoid storing a typed nil in the interface field.
	if c.Blob != nil {
		s.blob = c.Blob
	}
	return s
}

// AnalyzeReader decodes an SBOM from r and analyses it. source only labels log
// entries. Input errors wrap schemas.ErrInvalidDocument or
// schemas.ErrDocumentTooLarge.
func (s *Service) AnalyzeReader(ctx context.Context, r io.Reader, source string) (*schemas.AnalysisResult, error) {
	doc, err := analysis.Decode(r, s.maxBytes)
	if err != nil {
		s.logger.Warn("Rejected SBOM document.", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("Analyzing SBOM.", zap.String("source", source), zap.Int("components", len(doc.Components)))
	return s.analyzer.Analyze(ctx, doc)
}

// ShouldProcess reports whether key names an SBOM document under the input
// prefix.
func (s *Service) ShouldProcess(key string) bool {
	return strings.HasPrefix(key, s.inputPrefix) && strings.HasSuffix(key, InputSuffix)
}

// OutputKeyFor maps an input key to the key its result is written under.
func (s *Service) OutputKeyFor(key string) string {
	base := path.Base(key)
	return s.outputPrefix + strings.TrimSuffix(base, InputSuffix) + OutputSuffix
}

// ProcessObject runs the stored-object flow for key. Keys that are not SBOM
// documents are skipped without error. The audit record is best effort: a
// failed write is logged and counted, never returned.
func (s *Service) ProcessObject(ctx context.Context, key string) (*Outcome, error) {
	if !s.ShouldProcess(key) {
		s.logger.Info("Skipping non-SBOM object.", zap.String("key", key))
		return &Outcome{Status: StatusSkipped, Message: "Not a SBOM file, skipping", InputKey: key}, nil
	}
	if s.blob == nil {
		return nil, ErrStorageUnavailable
	}

	logger := s.logger.With(zap.String("key", key))
	logger.Info("Processing SBOM object.")

	rc, err := s.blob.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer rc.Close()

	result, err := s.AnalyzeReader(ctx, rc, key)
	if err != nil {
		return nil, err
	}

	outputKey := s.OutputKeyFor(key)
	result.Metadata = &schemas.ResultMetadata{
		SourceFile:      key,
		OutputKey:       outputKey,
		AnalysisTimeUTC: s.now().UTC(),
		EngineVersion:   s.version,
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	if err := s.blob.Put(ctx, outputKey, body, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to store analysis result: %w", err)
	}

	s.recordAudit(ctx, path.Base(key), outputKey, result)

	logger.Info("Analysis complete.", zap.String("output_key", outputKey),
		zap.String("risk_level", string(result.OverallRiskLevel)))
	return &Outcome{
		Status:     StatusProcessed,
		Message:    "SBOM analysis complete",
		InputKey:   key,
		OutputKey:  outputKey,
		AnalysisID: result.AnalysisID,
		Summary:    &result.Summary,
		Executive:  &result.ExecutiveSummary,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, sbomID, outputKey string, result *schemas.AnalysisResult) {
	if s.audit == nil {
		return
	}
	if err := s.audit.PutRecord(ctx, store.RecordFromResult(sbomID, outputKey, result)); err != nil {
		s.metrics.AuditWriteFailures.Inc()
		s.logger.Warn("Audit record insert skipped or failed.", zap.String("sbom_id", sbomID), zap.Error(err))
	}
}
