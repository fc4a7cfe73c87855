package client

import (
	"context"
	"fmt"
	"net/http"

	"assistantsproxy/internal/core"

	"github.com/sashabaranov/go-openai"
)

// AzureInitializer builds clients for Azure-hosted Assistants, one group per model.
type AzureInitializer struct {
	config     *core.AzureAssistantsConfig
	httpClient *http.Client
}

// NewAzureInitializer creates an AzureInitializer.
func NewAzureInitializer(cfg *core.AzureAssistantsConfig, httpClient *http.Client) *AzureInitializer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AzureInitializer{config: cfg, httpClient: httpClient}
}

// Init implements Initializer. The group is the one declaring params.Model,
// or the first assistant group when no model is given.
func (a *AzureInitializer) Init(_ context.Context, params InitParams) (*Result, error) {
	if !a.config.HasAssistants() {
		return nil, core.NewEndpointDisabledError(params.Path, core.EndpointAzureAssistants.String())
	}

	model := params.Model
	if model == "" {
		first := a.config.GroupMap[a.config.AssistantGroups[0]]
		if first == nil {
			return nil, fmt.Errorf("azure group %q is not configured", a.config.AssistantGroups[0])
		}
		model = first.FirstModel()
	}

	group, ok := a.config.GroupForModel(model)
	if !ok {
		return nil, fmt.Errorf("no azure group serves model %q", model)
	}

	cfg := openai.DefaultAzureConfig(group.APIKey, group.ResolveBaseURL())
	cfg.APIVersion = group.APIVersionFor(model)
	cfg.AssistantVersion = params.Version
	cfg.AzureModelMapperFunc = func(m string) string {
		if deployment := group.DeploymentFor(m); deployment != "" {
			return deployment
		}
		return m
	}
	cfg.HTTPClient = httpDoer(a.httpClient, params.Option)

	return newResult(params, group.Name, openai.NewClientWithConfig(cfg)), nil
}
