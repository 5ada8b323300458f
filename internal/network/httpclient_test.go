// internal/network/httpclient_test.go
package network

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Test Cases: Configuration and Defaults (ClientConfig) --

func TestNewDefaultClientConfig(t *testing.T) {
	config := NewDefaultClientConfig()

	assert.Equal(t, DefaultRequestTimeout, config.RequestTimeout)
	assert.Equal(t, DefaultResponseHeaderTimeout, config.ResponseHeaderTimeout)
	assert.Equal(t, DefaultMaxIdleConns, config.MaxIdleConns)
	assert.Equal(t, DefaultMaxConnsPerHost, config.MaxConnsPerHost)
	assert.True(t, config.ForceHTTP2, "HTTP/2 should be preferred by default")
	assert.Equal(t, UserAgent, config.UserAgent)
	assert.NotNil(t, config.Logger)
}

func TestConfigureTLS_Defaults(t *testing.T) {
	config := NewDefaultClientConfig()
	tlsConfig := configureTLS(config)

	require.NotNil(t, tlsConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	assert.False(t, tlsConfig.InsecureSkipVerify)
	assert.NotNil(t, tlsConfig.ClientSessionCache)
}

func TestConfigureTLS_CustomConfigIsCloned(t *testing.T) {
	custom := &tls.Config{ServerName: "custom.sni"}
	config := NewDefaultClientConfig()
	config.TLSConfig = custom
	config.IgnoreTLSErrors = true

	tlsConfig := configureTLS(config)

	assert.Equal(t, "custom.sni", tlsConfig.ServerName)
	assert.True(t, tlsConfig.InsecureSkipVerify)
	assert.False(t, custom.InsecureSkipVerify, "the caller's config must not be modified")
}

// -- Test Cases: Transport --

func TestNewHTTPTransport_AppliesConfig(t *testing.T) {
	config := NewDefaultClientConfig()
	config.Logger = zap.NewNop()
	config.MaxConnsPerHost = 3
	config.IdleConnTimeout = 7 * time.Second

	transport := NewHTTPTransport(config)

	assert.Equal(t, 3, transport.MaxConnsPerHost)
	assert.Equal(t, 7*time.Second, transport.IdleConnTimeout)
	assert.True(t, transport.ForceAttemptHTTP2)
	assert.NotNil(t, transport.DialContext)
}

func TestNewHTTPTransport_HTTP1Only(t *testing.T) {
	config := NewDefaultClientConfig()
	config.ForceHTTP2 = false

	transport := NewHTTPTransport(config)

	assert.False(t, transport.ForceAttemptHTTP2)
	assert.Equal(t, []string{"http/1.1"}, transport.TLSClientConfig.NextProtos)
}

func TestNewHTTPTransport_NilConfig(t *testing.T) {
	assert.NotPanics(t, func() {
		transport := NewHTTPTransport(nil)
		assert.NotNil(t, transport)
	})
}

// -- Test Cases: Client --

func TestClient_SetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(NewDefaultClientConfig())

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, UserAgent, got)
}

func TestClient_KeepsCallerUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(nil)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/2.0")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "custom/2.0", got)
	assert.Equal(t, "custom/2.0", req.Header.Get("User-Agent"))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	config := NewDefaultClientConfig()
	config.RequestTimeout = 20 * time.Millisecond
	client := NewClient(config)

	_, err := client.Get(server.URL)
	require.Error(t, err)
}
