// Package vulndb answers "which known HIGH or CRITICAL vulnerabilities affect
// this component" from the National Vulnerability Database.
package vulndb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxResponseBytes bounds how much of an NVD response is read.
const maxResponseBytes = 32 << 20

// severityTiers are queried in order, one request each.
var severityTiers = []string{"CRITICAL", "HIGH"}

// HTTPDoer is the part of *http.Client the NVD client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NVDClient queries the NVD CVE API 2.0 by keyword. It is safe for
// concurrent use; all callers share one rate limiter.
type NVDClient struct {
	cfg     config.NVDConfig
	client  HTTPDoer
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.VulnerabilitySource = (*NVDClient)(nil)

// NewNVDClient creates a client. A nil logger disables logging.
func NewNVDClient(cfg config.NVDConfig, client HTTPDoer, logger *zap.Logger) *NVDClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = 50
	}
	return &NVDClient{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.EffectiveRateLimit()), cfg.Burst),
		logger:  logger.Named("nvd"),
	}
}

// Lookup returns the component's HIGH and CRITICAL vulnerabilities, highest
// score first and at most MaxResults of them. A query without a name or
// version returns no records and sends nothing.
func (c *NVDClient) Lookup(ctx context.Context, q schemas.VulnerabilityQuery) ([]schemas.VulnerabilityRecord, error) {
	if strings.TrimSpace(q.Name) == "" || strings.TrimSpace(q.Version) == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	var records []schemas.VulnerabilityRecord
	for _, tier := range severityTiers {
		resp, err := c.fetch(ctx, q.Name, tier)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Vulnerabilities {
			if v.CVE.ID == "" || seen[v.CVE.ID] {
				continue
			}
			seen[v.CVE.ID] = true
			record, ok := recordFromCVE(v.CVE)
			// The server filter is on v3 severity only; the retained set is
			// decided on the scheme actually selected.
			if !ok || !record.Severity.Retained() {
				continue
			}
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	if len(records) > c.cfg.MaxResults {
		records = records[:c.cfg.MaxResults]
	}

	c.logger.Debug("NVD lookup complete",
		zap.String("component", q.Name),
		zap.Int("retained", len(records)))
	return records, nil
}

func (c *NVDClient) fetch(ctx context.Context, keyword, severity string) (*nvdResponse, error) {
	fail := func(kind ErrorKind, status int, err error) (*nvdResponse, error) {
		return nil, &LookupError{Kind: kind, Component: keyword, StatusCode: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(classifyTransportError(ctx, err), 0, fmt.Errorf("waiting for rate limiter: %w", err))
	}

	reqCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("keywordSearch", keyword)
	params.Set("resultsPerPage", strconv.Itoa(c.cfg.ResultsPerPage))
	params.Set("cvssV3Severity", severity)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fail(KindTransport, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("apiKey", c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(classifyTransportError(reqCtx, err), 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		// NVD answers 403 when the rolling quota is exhausted.
		return fail(KindRateLimited, resp.StatusCode, fmt.Errorf("quota exceeded"))
	case resp.StatusCode != http.StatusOK:
		return fail(KindStatus, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(classifyTransportError(reqCtx, err), 0, fmt.Errorf("reading body: %w", err))
	}

	var parsed nvdResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fail(KindDecode, 0, err)
	}

	c.logger.Debug("NVD query answered",
		zap.String("keyword", keyword),
		zap.String("severity", severity),
		zap.Int("total_results", parsed.TotalResults),
		zap.Duration("elapsed", time.Since(start)))
	return &parsed, nil
}

// recordFromCVE converts one CVE. Severity and score come from the newest
// scoring scheme present, using that scheme's first metric entry. ok is false
// when the CVE carries no metrics at all.
func recordFromCVE(cve nvdCVE) (schemas.VulnerabilityRecord, bool) {
	record := schemas.VulnerabilityRecord{
		ID:          cve.ID,
		Summary:     schemas.TruncateSummary(description(cve.Descriptions)),
		PublishedAt: cve.Published,
		UpdatedAt:   cve.LastModified,
	}

	var label string
	m := cve.Metrics
	switch {
	case len(m.CvssMetricV40) > 0:
		record.ScoringScheme = schemas.SchemeCVSSv40
		record.Score = m.CvssMetricV40[0].CvssData.BaseScore
		label = m.CvssMetricV40[0].CvssData.BaseSeverity
	case len(m.CvssMetricV31) > 0:
		record.ScoringScheme = schemas.SchemeCVSSv31
		record.Score = m.CvssMetricV31[0].CvssData.BaseScore
		label = m.CvssMetricV31[0].CvssData.BaseSeverity
	case len(m.CvssMetricV30) > 0:
		record.ScoringScheme = schemas.SchemeCVSSv30
		record.Score = m.CvssMetricV30[0].CvssData.BaseScore
		label = m.CvssMetricV30[0].CvssData.BaseSeverity
	case len(m.CvssMetricV2) > 0:
		record.ScoringScheme = schemas.SchemeCVSSv2
		record.Score = m.CvssMetricV2[0].CvssData.BaseScore
		label = m.CvssMetricV2[0].BaseSeverity
	default:
		return record, false
	}

	if sev, ok := schemas.ParseSeverity(label); ok {
		record.Severity = sev
	} else {
		record.Severity = schemas.SeverityFromScore(record.Score)
	}
	return record, true
}

// description prefers the English text.
func description(values []nvdLangValue) string {
	for _, v := range values {
		if v.Lang == "en" {
			return v.Value
		}
	}
	if len(values) > 0 {
		return values[0].Value
	}
	return ""
}
