package client

import (
	"net/http"

	"assistantsproxy/internal/config"
	"assistantsproxy/internal/core"
)

// NewHTTPClient creates the pooled HTTP client shared by all vendor clients.
// Zero-valued settings take their defaults.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	settings = settings.WithDefaults()
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}
