package services

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// useFreshBreakers isolates circuit breaker state per test
func useFreshBreakers(t *testing.T) *CircuitBreakerRegistry {
	t.Helper()
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	SetGlobalRegistry(registry)
	t.Cleanup(func() { SetGlobalRegistry(nil) })
	return registry
}

// newProviderServer starts an httptest server and closes it at test end
func newProviderServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}
