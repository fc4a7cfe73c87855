package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
	"gopkg.in/yaml.v3"
)

// ModelConfig is the per-model override inside an Azure group.
// Empty fields fall back to the group defaults.
type ModelConfig struct {
	DeploymentName string `json:"deploymentName,omitempty" yaml:"deploymentName,omitempty"`
	Version        string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ModelEntry is one model of a ModelMap.
type ModelEntry struct {
	Name   string
	Config ModelConfig
}

// ModelMap is a model name -> ModelConfig mapping that keeps declaration order.
// A model declared as `true` uses the group defaults; `false` drops it.
type ModelMap struct {
	entries []ModelEntry
}

// NewModelMap builds a ModelMap from entries in order.
func NewModelMap(entries ...ModelEntry) ModelMap {
	return ModelMap{entries: append([]ModelEntry(nil), entries...)}
}

// Len returns the number of models.
func (m ModelMap) Len() int {
	return len(m.entries)
}

// Entries returns the models in declaration order.
func (m ModelMap) Entries() []ModelEntry {
	return m.entries
}

// Names returns the model names in declaration order.
func (m ModelMap) Names() []string {
	names := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		names = append(names, e.Name)
	}
	return names
}

// First returns the first declared model name.
func (m ModelMap) First() (string, bool) {
	if len(m.entries) == 0 {
		return "", false
	}
	return m.entries[0].Name, true
}

// Get looks up a model by name.
func (m ModelMap) Get(name string) (ModelConfig, bool) {
	for _, e := range m.entries {
		if e.Name == name {
			return e.Config, true
		}
	}
	return ModelConfig{}, false
}

func (m *ModelMap) add(name string, cfg ModelConfig) error {
	if _, exists := m.Get(name); exists {
		return fmt.Errorf("duplicate model %q", name)
	}
	m.entries = append(m.entries, ModelEntry{Name: name, Config: cfg})
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. The object is walked as a sonic
// AST so models keep their declaration order.
func (m *ModelMap) UnmarshalJSON(data []byte) error {
	m.entries = nil
	root, err := sonic.Get(data)
	if err != nil {
		return err
	}

	switch root.Type() {
	case ast.V_NULL:
		return nil
	case ast.V_OBJECT:
	default:
		return fmt.Errorf("models must be an object")
	}

	var walkErr error
	err = root.ForEach(func(path ast.Sequence, node *ast.Node) bool {
		if path.Key == nil {
			walkErr = fmt.Errorf("models must be an object")
			return false
		}
		name := *path.Key

		raw, err := node.Raw()
		if err != nil {
			walkErr = fmt.Errorf("model %q: %w", name, err)
			return false
		}

		cfg, enabled, err := parseModelValue([]byte(raw))
		if err != nil {
			walkErr = fmt.Errorf("model %q: %w", name, err)
			return false
		}
		if !enabled {
			return true
		}
		if err := m.add(name, cfg); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}
	return err
}

func parseModelValue(raw []byte) (ModelConfig, bool, error) {
	var cfg ModelConfig
	switch trimmed := strings.TrimSpace(string(raw)); {
	case trimmed == "true":
		return cfg, true, nil
	case trimmed == "false":
		return cfg, false, nil
	case strings.HasPrefix(trimmed, "{"):
		if err := sonic.Unmarshal(raw, &cfg); err != nil {
			return cfg, false, err
		}
		return cfg, true, nil
	default:
		return cfg, false, fmt.Errorf("expected true or an object, got %s", trimmed)
	}
}

// MarshalJSON implements json.Marshaler, writing keys in declaration order.
func (m ModelMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := sonic.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := sonic.Marshal(e.Config)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *ModelMap) UnmarshalYAML(value *yaml.Node) error {
	m.entries = nil
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: models must be a mapping", value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		name := keyNode.Value

		var cfg ModelConfig
		switch valNode.Kind {
		case yaml.ScalarNode:
			var enabled bool
			if err := valNode.Decode(&enabled); err != nil {
				return fmt.Errorf("line %d: model %q: expected true or a mapping", valNode.Line, name)
			}
			if !enabled {
				continue
			}
		case yaml.MappingNode:
			if err := valNode.Decode(&cfg); err != nil {
				return fmt.Errorf("line %d: model %q: %w", valNode.Line, name, err)
			}
		default:
			return fmt.Errorf("line %d: model %q: expected true or a mapping", valNode.Line, name)
		}

		if err := m.add(name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// AzureGroup is one Azure OpenAI resource with its model deployments.
type AzureGroup struct {
	Name           string   `json:"group" yaml:"group"`
	APIKey         string   `json:"apiKey" yaml:"apiKey"`
	InstanceName   string   `json:"instanceName,omitempty" yaml:"instanceName,omitempty"`
	BaseURL        string   `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Version        string   `json:"version,omitempty" yaml:"version,omitempty"`
	DeploymentName string   `json:"deploymentName,omitempty" yaml:"deploymentName,omitempty"`
	Assistants     bool     `json:"assistants,omitempty" yaml:"assistants,omitempty"`
	Models         ModelMap `json:"models" yaml:"models"`
}

// FirstModel returns the first declared model name, or "" when there is none.
func (g *AzureGroup) FirstModel() string {
	name, _ := g.Models.First()
	return name
}

// DeploymentFor returns the deployment serving model, falling back to the group default.
func (g *AzureGroup) DeploymentFor(model string) string {
	if cfg, ok := g.Models.Get(model); ok && cfg.DeploymentName != "" {
		return cfg.DeploymentName
	}
	return g.DeploymentName
}

// APIVersionFor returns the Azure api-version for model.
func (g *AzureGroup) APIVersionFor(model string) string {
	if cfg, ok := g.Models.Get(model); ok && cfg.Version != "" {
		return cfg.Version
	}
	if g.Version != "" {
		return g.Version
	}
	return DefaultAzureAPIVersion
}

// ResolveBaseURL returns the resource URL, built from InstanceName when BaseURL is unset.
func (g *AzureGroup) ResolveBaseURL() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return fmt.Sprintf(AzureBaseURLTemplate, g.InstanceName)
}

// AzureAssistantsConfig is the resolved multi-deployment configuration.
type AzureAssistantsConfig struct {
	GroupMap        map[string]*AzureGroup
	AssistantGroups []string
	ModelGroupMap   map[string]string
}

// GroupForModel returns the group that declares model.
func (c *AzureAssistantsConfig) GroupForModel(model string) (*AzureGroup, bool) {
	if c == nil {
		return nil, false
	}
	name, ok := c.ModelGroupMap[model]
	if !ok {
		return nil, false
	}
	group, ok := c.GroupMap[name]
	return group, ok
}

// HasAssistants reports whether at least one group serves assistants.
func (c *AzureAssistantsConfig) HasAssistants() bool {
	return c != nil && len(c.AssistantGroups) > 0
}
