package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_NoConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	// Without trusted proxies the forwarding header is ignored.
	assert.Equal(t, "203.0.113.7", ExtractClientIP(req, nil))
}

func TestExtractClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	cfg := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	assert.Equal(t, "203.0.113.7", ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxyForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.1.2.3")

	cfg := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	assert.Equal(t, "198.51.100.1", ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxyRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:80"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	cfg := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	assert.Equal(t, "198.51.100.9", ExtractClientIP(req, cfg))
}

func TestExtractClientIP_InvalidForwardedEntriesSkipped(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:80"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 198.51.100.2")

	cfg := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	assert.Equal(t, "198.51.100.2", ExtractClientIP(req, cfg))
}

func TestExtractClientIP_NoPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7"

	assert.Equal(t, "203.0.113.7", ExtractClientIP(req, nil))
}
