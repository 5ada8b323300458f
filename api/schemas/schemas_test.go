package schemas_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

func TestSeverity_Ordering(t *testing.T) {
	t.Parallel()
	assert.True(t, schemas.SeverityNone < schemas.SeverityLow)
	assert.True(t, schemas.SeverityLow < schemas.SeverityMedium)
	assert.True(t, schemas.SeverityMedium < schemas.SeverityHigh)
	assert.True(t, schemas.SeverityHigh < schemas.SeverityCritical)

	assert.True(t, schemas.SeverityHigh.Retained())
	assert.True(t, schemas.SeverityCritical.Retained())
	assert.False(t, schemas.SeverityMedium.Retained())
	assert.False(t, schemas.SeverityNone.Retained())
}

func TestSeverity_Text(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CRITICAL", schemas.SeverityCritical.String())
	assert.Equal(t, "UNKNOWN", schemas.Severity(42).String())

	data, err := json.Marshal(map[string]schemas.Severity{"s": schemas.SeverityHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"HIGH"}`, string(data))

	var decoded struct {
		S schemas.Severity `json:"s" yaml:"s"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"s":"medium"}`), &decoded))
	assert.Equal(t, schemas.SeverityMedium, decoded.S)
	require.NoError(t, yaml.Unmarshal([]byte("s: critical\n"), &decoded))
	assert.Equal(t, schemas.SeverityCritical, decoded.S)

	assert.Error(t, json.Unmarshal([]byte(`{"s":"severe"}`), &decoded))
	_, err = json.Marshal(schemas.Severity(-1))
	assert.Error(t, err)
}

func TestSeverityFromScore(t *testing.T) {
	t.Parallel()
	cases := map[float64]schemas.Severity{
		10.0: schemas.SeverityCritical,
		9.0:  schemas.SeverityCritical,
		8.9:  schemas.SeverityHigh,
		7.0:  schemas.SeverityHigh,
		6.9:  schemas.SeverityMedium,
		4.0:  schemas.SeverityMedium,
		0.1:  schemas.SeverityLow,
		0:    schemas.SeverityNone,
	}
	for score, want := range cases {
		assert.Equal(t, want, schemas.SeverityFromScore(score), "score %.1f", score)
	}
}

func TestTruncateSummary(t *testing.T) {
	t.Parallel()
	short := strings.Repeat("a", schemas.MaxSummaryLength)
	assert.Equal(t, short, schemas.TruncateSummary(short))

	long := strings.Repeat("b", schemas.MaxSummaryLength+1)
	got := schemas.TruncateSummary(long)
	assert.Equal(t, strings.Repeat("b", schemas.MaxSummaryLength)+"...", got)

	// Truncation counts characters, not bytes.
	wide := strings.Repeat("é", schemas.MaxSummaryLength+5)
	assert.Equal(t, strings.Repeat("é", schemas.MaxSummaryLength)+"...", schemas.TruncateSummary(wide))
}

func TestComponent_Property(t *testing.T) {
	t.Parallel()
	c := schemas.Component{Properties: []schemas.Property{
		{Name: schemas.PropertyAuthorEmail, Value: "first@example.com"},
		{Name: "other", Value: "x"},
		{Name: schemas.PropertyAuthorEmail, Value: "second@example.ir"},
	}}

	v, ok := c.Property(schemas.PropertyAuthorEmail)
	require.True(t, ok)
	assert.Equal(t, "second@example.ir", v, "later entries override earlier ones")

	_, ok = c.Property(schemas.PropertyOrigin)
	assert.False(t, ok)
}

func TestEcosystem_Known(t *testing.T) {
	t.Parallel()
	for _, e := range []schemas.Ecosystem{schemas.EcosystemPyPI, schemas.EcosystemNPM, schemas.EcosystemMaven, schemas.EcosystemNuGet} {
		assert.True(t, e.Known(), e)
	}
	assert.False(t, schemas.EcosystemOther.Known())
	assert.False(t, schemas.Ecosystem("cargo").Known())
}
