// Package version resolves the Assistants API version of a request.
package version

import (
	"context"
	"strconv"
	"strings"

	"assistantsproxy/internal/core"
)

// Lookup is one source in the resolution chain. An empty result defers to the next source.
type Lookup func(ctx context.Context, req *core.AssistantRequest, endpoint string) (string, error)

// Resolver picks the version from path, body, cached endpoint config and
// built-in defaults, in that order.
type Resolver struct {
	store    core.ConfigStore
	defaults map[core.Endpoint]int
	chain    []Lookup
}

// NewResolver creates a Resolver. store may be nil, which skips the cache lookup.
func NewResolver(store core.ConfigStore) *Resolver {
	r := &Resolver{store: store, defaults: core.DefaultAssistantsVersions}
	r.chain = []Lookup{fromPath, fromBody, r.fromCache, r.fromDefaults}
	return r
}

// Resolve returns a validated version such as "v2".
func (r *Resolver) Resolve(ctx context.Context, req *core.AssistantRequest, endpoint string) (string, error) {
	var version string
	for _, lookup := range r.chain {
		v, err := lookup(ctx, req, endpoint)
		if err != nil {
			return "", err
		}
		if v != "" {
			version = v
			break
		}
	}

	if !Valid(version) {
		return "", core.NewInvalidVersionError(req.BasePath, version)
	}
	return version, nil
}

// Valid reports whether version is a "v" followed by exactly one character.
func Valid(version string) bool {
	return strings.HasPrefix(version, core.VersionPrefix) && len(version) == core.VersionLength
}

// FromPath extracts the token that starts at the last "/v" of basePath.
func FromPath(basePath string) string {
	idx := strings.LastIndex(basePath, "/"+core.VersionPrefix)
	if idx < 0 {
		return ""
	}
	token := basePath[idx+1:]
	if len(token) > core.VersionLength {
		token = token[:core.VersionLength]
	}
	return token
}

func fromPath(_ context.Context, req *core.AssistantRequest, _ string) (string, error) {
	return FromPath(req.BasePath), nil
}

func fromBody(_ context.Context, req *core.AssistantRequest, _ string) (string, error) {
	if req.Body.Version == "" {
		return "", nil
	}
	return core.VersionPrefix + req.Body.Version.String(), nil
}

func (r *Resolver) fromCache(ctx context.Context, _ *core.AssistantRequest, endpoint string) (string, error) {
	if endpoint == "" || r.store == nil {
		return "", nil
	}
	cfg, ok, err := r.store.GetEndpointsConfig(ctx)
	if err != nil || !ok {
		return "", err
	}
	entry, ok := cfg[endpoint]
	if !ok || entry.Version == "" {
		return "", nil
	}
	return core.VersionPrefix + entry.Version.String(), nil
}

func (r *Resolver) fromDefaults(_ context.Context, _ *core.AssistantRequest, endpoint string) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	v, ok := r.defaults[core.Endpoint(endpoint)]
	if !ok {
		return "", nil
	}
	return core.VersionPrefix + strconv.Itoa(v), nil
}
