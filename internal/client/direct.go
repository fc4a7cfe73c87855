package client

import (
	"context"
	"net/http"

	"assistantsproxy/internal/config"
	"assistantsproxy/internal/core"

	"github.com/sashabaranov/go-openai"
)

// DirectInitializer builds clients for the OpenAI Assistants API.
type DirectInitializer struct {
	settings   config.DirectSettings
	httpClient *http.Client
}

// NewDirectInitializer creates a DirectInitializer.
func NewDirectInitializer(settings config.DirectSettings, httpClient *http.Client) *DirectInitializer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DirectInitializer{settings: settings, httpClient: httpClient}
}

// Init implements Initializer.
func (d *DirectInitializer) Init(_ context.Context, params InitParams) (*Result, error) {
	if !d.settings.Enabled() {
		return nil, core.NewEndpointDisabledError(params.Path, core.EndpointAssistants.String())
	}

	cfg := openai.DefaultConfig(d.settings.APIKey)
	if d.settings.BaseURL != "" {
		cfg.BaseURL = d.settings.BaseURL
	}
	cfg.OrgID = d.settings.Organization
	cfg.AssistantVersion = params.Version
	cfg.HTTPClient = httpDoer(d.httpClient, params.Option)

	return newResult(params, core.DirectGroupLabel, openai.NewClientWithConfig(cfg)), nil
}
