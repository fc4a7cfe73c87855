// Package assistants lists assistants from the direct and Azure endpoints.
package assistants

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"assistantsproxy/internal/client"
	"assistantsproxy/internal/core"
	"assistantsproxy/internal/version"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// UpstreamObserver is notified after every vendor list call.
type UpstreamObserver interface {
	RecordUpstream(endpoint, group, result string, duration time.Duration)
}

// Config configures a Service.
type Config struct {
	Versions *version.Resolver
	Clients  *client.Resolver
	Azure    *core.AzureAssistantsConfig
	Observer UpstreamObserver
}

// Service implements assistant listing.
type Service struct {
	versions *version.Resolver
	clients  *client.Resolver
	azure    *core.AzureAssistantsConfig
	observer UpstreamObserver
}

// FetchResult is the outcome of Fetch.
type FetchResult struct {
	Endpoint core.Endpoint
	Version  string
	List     *core.AssistantList
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	return &Service{
		versions: cfg.Versions,
		clients:  cfg.Clients,
		azure:    cfg.Azure,
		observer: cfg.Observer,
	}
}

// Fetch resolves the version, validates the query and dispatches on the query endpoint.
func (s *Service) Fetch(ctx context.Context, req *core.AssistantRequest) (*FetchResult, error) {
	name := req.Query.Endpoint
	ver, err := s.versions.Resolve(ctx, req, name)
	if err != nil {
		return nil, err
	}

	query, err := ParseQuery(req.BasePath, req.Query)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, core.NewEndpointRequiredError(req.BasePath)
	}
	endpoint, ok := core.ParseEndpoint(name)
	if !ok {
		return nil, core.NewUnsupportedEndpointError(req.BasePath, name)
	}

	var list *core.AssistantList
	switch endpoint {
	case core.EndpointAssistants:
		list, err = s.ListDirect(ctx, req, ver, query)
	case core.EndpointAzureAssistants:
		list, err = s.ListAzure(ctx, req, ver, s.azure, query)
	default:
		return nil, core.NewUnsupportedEndpointError(req.BasePath, name)
	}
	if err != nil {
		return nil, err
	}
	return &FetchResult{Endpoint: endpoint, Version: ver, List: list}, nil
}

// ListDirect issues one list call against the direct endpoint and returns the vendor page.
func (s *Service) ListDirect(ctx context.Context, req *core.AssistantRequest, ver string, query core.ListQuery) (*core.AssistantList, error) {
	res, err := s.clients.Resolve(ctx, client.ResolveParams{
		Request:  req,
		Endpoint: core.EndpointAssistants.String(),
		Version:  ver,
	})
	if err != nil {
		return nil, err
	}

	limit, order, after, before := query.Args()
	page, err := s.observe(res).ListAssistants(ctx, limit, order, after, before)
	if err != nil {
		return nil, err
	}
	return core.FromVendorList(page), nil
}

// ListAzure issues one list call per assistant group, concurrently and with the
// caller's query, and merges the results in group order. The merged list
// reports has_more as false.
func (s *Service) ListAzure(
	ctx context.Context,
	req *core.AssistantRequest,
	ver string,
	azureCfg *core.AzureAssistantsConfig,
	query core.ListQuery,
) (*core.AssistantList, error) {
	if !azureCfg.HasAssistants() {
		return nil, core.NewEndpointDisabledError(req.BasePath, core.EndpointAzureAssistants.String())
	}

	groups := make([]*core.AzureGroup, len(azureCfg.AssistantGroups))
	for i, name := range azureCfg.AssistantGroups {
		group, ok := azureCfg.GroupMap[name]
		if !ok || group.Models.Len() == 0 {
			return nil, fmt.Errorf("azure group %q has no models configured", name)
		}
		groups[i] = group
	}

	results := make([][]openai.Assistant, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			res, err := s.clients.Resolve(gctx, client.ResolveParams{
				Request:  req,
				Endpoint: core.EndpointAzureAssistants.String(),
				Version:  ver,
				Model:    group.FirstModel(),
			})
			if err != nil {
				return err
			}

			limit, order, after, before := query.Args()
			page, err := s.observe(res).ListAssistants(gctx, limit, order, after, before)
			if err != nil {
				return err
			}
			results[i] = RemapModels(page.Assistants, group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []openai.Assistant
	for _, data := range results {
		merged = append(merged, data...)
	}
	return core.NewAssistantList(merged, false), nil
}

// RemapModels replaces deployment ids in the model field with the group's model names.
func RemapModels(data []openai.Assistant, group *core.AzureGroup) []openai.Assistant {
	out := make([]openai.Assistant, len(data))
	for i, a := range data {
		a.Model = RemapModel(a.Model, group)
		out[i] = a
	}
	return out
}

// RemapModel maps a deployment id back to a model name: the group default
// deployment maps to the first model, a model's own deployment maps to that
// model, anything else falls back to the first model.
func RemapModel(deployment string, group *core.AzureGroup) string {
	first := group.FirstModel()
	if deployment == group.DeploymentName {
		return first
	}
	for _, entry := range group.Models.Entries() {
		if entry.Config.DeploymentName == deployment {
			return entry.Name
		}
	}
	return first
}

// ParseQuery validates the pagination query and applies defaults.
func ParseQuery(path string, q core.RequestQuery) (core.ListQuery, error) {
	query := core.ListQuery{
		Limit:  core.DefaultListLimit,
		Order:  core.DefaultListOrder,
		After:  q.After,
		Before: q.Before,
	}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 || limit > core.MaxListLimit {
			return query, core.NewInvalidQueryError(path, "limit", q.Limit)
		}
		query.Limit = limit
	}

	switch q.Order {
	case "":
	case core.ListOrderAsc, core.ListOrderDesc:
		query.Order = q.Order
	default:
		return query, core.NewInvalidQueryError(path, "order", q.Order)
	}

	return query, nil
}

func (s *Service) observe(res *client.Result) core.AssistantLister {
	if s.observer == nil {
		return res.Lister
	}
	return &observedLister{
		next:     res.Lister,
		observer: s.observer,
		endpoint: res.Endpoint.String(),
		group:    res.Group,
	}
}

type observedLister struct {
	next     core.AssistantLister
	observer UpstreamObserver
	endpoint string
	group    string
}

func (o *observedLister) ListAssistants(ctx context.Context, limit *int, order, after, before *string) (openai.AssistantsList, error) {
	start := time.Now()
	list, err := o.next.ListAssistants(ctx, limit, order, after, before)
	result := core.ResultLabelSuccess
	if err != nil {
		result = core.ResultLabelFailure
	}
	o.observer.RecordUpstream(o.endpoint, o.group, result, time.Since(start))
	return list, err
}
