package jurisdiction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

func TestExtractDomain(t *testing.T) {
	t.Run("valid addresses", func(t *testing.T) {
		cases := map[string]string{
			"user@example.com":           "example.com",
			"test@iran.ir":               "iran.ir",
			"admin@subdomain.domain.com": "subdomain.domain.com",
			"Dev.Team@Example.ORG":       "example.org",
			"  spaced@example.net  ":     "example.net",
			"root@localhost":             "localhost",
		}
		for email, want := range cases {
			got, ok := ExtractDomain(email)
			require.True(t, ok, email)
			assert.Equal(t, want, got, email)
		}
	})

	t.Run("rejected shapes", func(t *testing.T) {
		for _, email := range []string{
			"invalid",
			"",
			"user@",
			"@domain.com",
			"a@b@c.com",
			"user@-bad.com",
			"user@bad-.com",
			"user@bad..com",
			"user@.com",
			"user@exa mple.com",
			"user@exam_ple.com",
		} {
			_, ok := ExtractDomain(email)
			assert.False(t, ok, "expected no domain for %q", email)
		}
	})

	t.Run("label length limit", func(t *testing.T) {
		label63 := "a123456789b123456789c123456789d123456789e123456789f123456789abc"
		require.Len(t, label63, 63)
		_, ok := ExtractDomain("x@" + label63 + ".com")
		assert.True(t, ok)
		_, ok = ExtractDomain("x@" + label63 + "d.com")
		assert.False(t, ok)
	})

	t.Run("idempotent", func(t *testing.T) {
		first, ok := ExtractDomain("user@domain.com")
		require.True(t, ok)
		second, ok := ExtractDomain("user@" + first)
		require.True(t, ok)
		assert.Equal(t, first, second)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		domain       string
		jurisdiction string
		confidence   float64
	}{
		{"example.ir", "Iran", 0.8},
		{"test.ru", "Russia", 0.8},
		{"gov.kp", "North Korea", 0.8},
		{"shop.by", "Belarus", 0.8},
		{"TEST.CU", "Cuba", 0.8},
		{"tehran-company.com", "Iran", 0.6},
		{"russia-today.com", "Russia", 0.6},
		{"pyongyang.net", "North Korea", 0.6},
		{"crimea-hosting.org", "Crimea Region", 0.6},
		// ccTLD outranks a keyword naming a different jurisdiction.
		{"syria-news.ru", "Russia", 0.8},
		{"example.com", "", 0},
		{"github.io", "", 0},
		{"google.com", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			j, c := Classify(tt.domain)
			assert.Equal(t, tt.jurisdiction, j)
			assert.Equal(t, tt.confidence, c)
		})
	}
}

func TestOriginSignal(t *testing.T) {
	s, ok := OriginSignal("North Korea")
	require.True(t, ok)
	assert.Equal(t, schemas.SourceOriginProperty, s.Source)
	assert.Equal(t, 0.9, s.Confidence)

	_, ok = OriginSignal("north korea")
	assert.False(t, ok, "origin must match the canonical name exactly")
	_, ok = OriginSignal("Canada")
	assert.False(t, ok)
}

func TestSignals(t *testing.T) {
	t.Run("collects every source in order", func(t *testing.T) {
		c := schemas.Component{
			Name: "pkg",
			Properties: []schemas.Property{
				{Name: "author_email", Value: "dev@iran.ir"},
				{Name: "maintainer_email", Value: "ops@moscow-soft.com"},
				{Name: "origin", Value: "Syria"},
			},
		}
		got := Signals(c)
		require.Len(t, got, 3)
		assert.Equal(t, schemas.JurisdictionSignal{Source: schemas.SourceOriginProperty, Jurisdiction: "Syria", Confidence: 0.9}, got[0])
		assert.Equal(t, schemas.JurisdictionSignal{Source: schemas.SourceAuthorEmail, Jurisdiction: "Iran", Confidence: 0.8, Domain: "iran.ir"}, got[1])
		assert.Equal(t, schemas.JurisdictionSignal{Source: schemas.SourceMaintainerEmail, Jurisdiction: "Russia", Confidence: 0.6, Domain: "moscow-soft.com"}, got[2])
	})

	t.Run("last email property wins", func(t *testing.T) {
		c := schemas.Component{Properties: []schemas.Property{
			{Name: "author_email", Value: "dev@iran.ir"},
			{Name: "author_email", Value: "dev@example.com"},
		}}
		assert.Empty(t, Signals(c))
	})

	t.Run("unknown origin does not mask a known one", func(t *testing.T) {
		c := schemas.Component{Properties: []schemas.Property{
			{Name: "origin", Value: "Cuba"},
			{Name: "origin", Value: "Norway"},
		}}
		got := Signals(c)
		require.Len(t, got, 1)
		assert.Equal(t, "Cuba", got[0].Jurisdiction)
	})

	t.Run("clean component", func(t *testing.T) {
		c := schemas.Component{Properties: []schemas.Property{
			{Name: "author_email", Value: "test@example.com"},
			{Name: "license", Value: "MIT"},
		}}
		assert.Nil(t, Signals(c))
	})
}

func FuzzExtractDomain(f *testing.F) {
	f.Add("user@example.com")
	f.Add("@")
	f.Add("a@b@c")
	f.Fuzz(func(t *testing.T, email string) {
		domain, ok := ExtractDomain(email)
		if !ok {
			return
		}
		again, ok := ExtractDomain("x@" + domain)
		if !ok || again != domain {
			t.Fatalf("extracted domain %q does not round trip", domain)
		}
		// Classification must never fail on an extracted domain.
		_, c := Classify(domain)
		if c != 0 && c != CCTLDConfidence && c != KeywordConfidence {
			t.Fatalf("unexpected confidence %v", c)
		}
	})
}
