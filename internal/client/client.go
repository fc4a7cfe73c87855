// Package client builds vendor clients for the Assistants endpoints.
package client

import (
	"context"
	"net/http"

	"assistantsproxy/internal/core"
	"assistantsproxy/internal/version"

	"github.com/sashabaranov/go-openai"
)

// EndpointOption carries endpoint-specific settings forwarded to the initializer.
type EndpointOption struct {
	Headers map[string]string
}

// InitParams is the explicit input of a client initializer.
// Model scopes the client to one model; Azure maps it to a deployment group.
type InitParams struct {
	Path          string
	Version       string
	Endpoint      core.Endpoint
	Model         string
	Option        *EndpointOption
	InitAppClient bool
}

// Result is an initialized client.
type Result struct {
	Endpoint core.Endpoint
	Version  string
	// Group is the Azure group serving the client, or "direct".
	Group  string
	Lister core.AssistantLister
	// App is only set when InitAppClient was requested.
	App *openai.Client
}

// Initializer builds a client for one endpoint.
type Initializer interface {
	Init(ctx context.Context, params InitParams) (*Result, error)
}

// ResolveParams is the input of Resolver.Resolve.
type ResolveParams struct {
	Request *core.AssistantRequest
	// Endpoint overrides the endpoint named in the request.
	Endpoint string
	// Version skips version resolution when set.
	Version       string
	Model         string
	Option        *EndpointOption
	InitAppClient bool
}

// Resolver selects the endpoint and version of a request and delegates client creation.
type Resolver struct {
	versions     *version.Resolver
	initializers map[core.Endpoint]Initializer
}

// NewResolver creates a Resolver. A nil initializer leaves that endpoint unsupported.
func NewResolver(versions *version.Resolver, direct, azure Initializer) *Resolver {
	initializers := make(map[core.Endpoint]Initializer, 2)
	if direct != nil {
		initializers[core.EndpointAssistants] = direct
	}
	if azure != nil {
		initializers[core.EndpointAzureAssistants] = azure
	}
	return &Resolver{versions: versions, initializers: initializers}
}

// Resolve builds the client for the request.
func (r *Resolver) Resolve(ctx context.Context, params ResolveParams) (*Result, error) {
	req := params.Request
	if req == nil {
		req = &core.AssistantRequest{}
	}

	name := EndpointName(params.Endpoint, req)
	if name == "" {
		return nil, core.NewEndpointRequiredError(req.BasePath)
	}

	endpoint, ok := core.ParseEndpoint(name)
	if !ok {
		return nil, core.NewUnsupportedEndpointError(req.BasePath, name)
	}

	ver := params.Version
	if ver == "" {
		var err error
		ver, err = r.versions.Resolve(ctx, req, name)
		if err != nil {
			return nil, err
		}
	}

	initializer, ok := r.initializers[endpoint]
	if !ok {
		return nil, core.NewEndpointDisabledError(req.BasePath, name)
	}

	return initializer.Init(ctx, InitParams{
		Path:          req.BasePath,
		Version:       ver,
		Endpoint:      endpoint,
		Model:         params.Model,
		Option:        params.Option,
		InitAppClient: params.InitAppClient,
	})
}

// EndpointName returns the first non-empty of override, body endpoint and query endpoint.
func EndpointName(override string, req *core.AssistantRequest) string {
	switch {
	case override != "":
		return override
	case req.Body.Endpoint != "":
		return req.Body.Endpoint
	default:
		return req.Query.Endpoint
	}
}

// headerDoer adds fixed headers to every outgoing request.
type headerDoer struct {
	client  *http.Client
	headers map[string]string
}

func (d *headerDoer) Do(req *http.Request) (*http.Response, error) {
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}
	return d.client.Do(req)
}

func httpDoer(client *http.Client, option *EndpointOption) openai.HTTPDoer {
	if option == nil || len(option.Headers) == 0 {
		return client
	}
	return &headerDoer{client: client, headers: option.Headers}
}

func newResult(params InitParams, group string, c *openai.Client) *Result {
	result := &Result{
		Endpoint: params.Endpoint,
		Version:  params.Version,
		Group:    group,
		Lister:   c,
	}
	if params.InitAppClient {
		result.App = c
	}
	return result
}
