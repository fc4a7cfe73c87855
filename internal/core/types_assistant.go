package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// FlexString accepts both JSON strings and numbers, so `"version": 2` and
// `"version": "2"` decode to the same value.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*f = FlexString(raw)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FlexString) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar value", value.Line)
	}
	if value.Tag == "!!null" {
		*f = ""
		return nil
	}
	*f = FlexString(strings.TrimSpace(value.Value))
	return nil
}

// String returns the raw value.
func (f FlexString) String() string {
	return string(f)
}

// RequestBody carries the body fields the routing layer reads.
type RequestBody struct {
	Endpoint string     `json:"endpoint,omitempty"`
	Version  FlexString `json:"version,omitempty"`
	Model    string     `json:"model,omitempty"`
}

// RequestQuery carries the query fields the routing layer reads.
type RequestQuery struct {
	Endpoint string `form:"endpoint"`
	Limit    string `form:"limit"`
	Order    string `form:"order"`
	After    string `form:"after"`
	Before   string `form:"before"`
}

// AssistantRequest is the transport-independent view of an inbound request.
// BasePath is the mount path of the route (e.g. "/api/assistants/v2").
type AssistantRequest struct {
	BasePath string
	Body     RequestBody
	Query    RequestQuery
}

// ListQuery is the pagination query forwarded to the vendor list call.
type ListQuery struct {
	Limit  int    `json:"limit,omitempty"`
	Order  string `json:"order,omitempty"`
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
}

// Args converts the query into the optional arguments of ListAssistants.
func (q ListQuery) Args() (limit *int, order *string, after *string, before *string) {
	if q.Limit > 0 {
		l := q.Limit
		limit = &l
	}
	if q.Order != "" {
		o := q.Order
		order = &o
	}
	if q.After != "" {
		a := q.After
		after = &a
	}
	if q.Before != "" {
		b := q.Before
		before = &b
	}
	return limit, order, after, before
}

// AssistantList is the paginated list envelope returned to callers.
type AssistantList struct {
	Object  string             `json:"object"`
	Data    []openai.Assistant `json:"data"`
	FirstID *string            `json:"first_id"`
	LastID  *string            `json:"last_id"`
	HasMore bool               `json:"has_more"`
}

// NewAssistantList builds an envelope whose first_id/last_id are taken from
// the boundary elements of data.
func NewAssistantList(data []openai.Assistant, hasMore bool) *AssistantList {
	if data == nil {
		data = []openai.Assistant{}
	}
	list := &AssistantList{
		Object:  ListObjectType,
		Data:    data,
		HasMore: hasMore,
	}
	if len(data) > 0 {
		first := data[0].ID
		last := data[len(data)-1].ID
		list.FirstID = &first
		list.LastID = &last
	}
	return list
}

// FromVendorList wraps a vendor page without altering its ids or has_more.
func FromVendorList(page openai.AssistantsList) *AssistantList {
	data := page.Assistants
	if data == nil {
		data = []openai.Assistant{}
	}
	return &AssistantList{
		Object:  ListObjectType,
		Data:    data,
		FirstID: page.FirstID,
		LastID:  page.LastID,
		HasMore: page.HasMore,
	}
}

// EndpointConfig is the cached per-endpoint configuration.
type EndpointConfig struct {
	Version FlexString `json:"version,omitempty" yaml:"version,omitempty"`
}

// EndpointsConfig maps endpoint names to their cached configuration.
type EndpointsConfig map[string]EndpointConfig
