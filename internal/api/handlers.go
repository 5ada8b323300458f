// Package api exposes the analysis service over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/service"
)

// maxEventBytes bounds the body of a process request.
const maxEventBytes = 64 << 10

// Analyzer is the part of service.Service the handlers use.
type Analyzer interface {
	AnalyzeReader(ctx context.Context, r io.Reader, source string) (*schemas.AnalysisResult, error)
	ProcessObject(ctx context.Context, key string) (*service.Outcome, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	svc      Analyzer
	bucket   string
	maxBytes int64
	version  string
	logger   *zap.Logger
}

// NewHandlers creates handlers over svc. bucket is the configured storage
// bucket; process events naming any other bucket are rejected. maxBytes caps
// POST /v1/analyze bodies; a non-positive value uses
// schemas.DefaultMaxDocumentBytes.
func NewHandlers(svc Analyzer, bucket string, maxBytes int64, version string, logger *zap.Logger) *Handlers {
	if maxBytes <= 0 {
		maxBytes = schemas.DefaultMaxDocumentBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, bucket: bucket, maxBytes: maxBytes, version: version, logger: logger.Named("api")}
}

// HandleAnalyze analyses the SBOM in the request body and returns the
// AnalysisResult.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	// One byte of slack so the decoder, not the reader, reports oversize input.
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1)
	result, err := h.svc.AnalyzeReader(c.Request.Context(), body, "http:"+c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleProcess runs the stored-object flow. The body is either {"key": ...}
// or a storage notification event.
func (h *Handlers) HandleProcess(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBytes))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ref, err := service.ParseObjectEvent(body)
	if err == nil {
		err = ref.InBucket(h.bucket)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	outcome, err := h.svc.ProcessObject(c.Request.Context(), ref.Key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed.", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Debug("Request rejected.", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, schemas.ErrDocumentTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "document_too_large"
	case errors.Is(err, schemas.ErrInvalidDocument):
		return http.StatusBadRequest, "invalid_document"
	case errors.Is(err, service.ErrUnsupportedEvent):
		return http.StatusBadRequest, "unsupported_event"
	case errors.Is(err, schemas.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
