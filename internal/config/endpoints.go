package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"assistantsproxy/internal/core"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// EndpointsFile is the on-disk endpoints configuration (JSON or YAML).
type EndpointsFile struct {
	Endpoints EndpointsSection `json:"endpoints" yaml:"endpoints"`
}

// EndpointsSection lists the configurable endpoints.
type EndpointsSection struct {
	Assistants      *AssistantsEndpoint `json:"assistants,omitempty" yaml:"assistants,omitempty"`
	AzureAssistants *AssistantsEndpoint `json:"azureAssistants,omitempty" yaml:"azureAssistants,omitempty"`
	AzureOpenAI     *AzureEndpoint      `json:"azureOpenAI,omitempty" yaml:"azureOpenAI,omitempty"`
}

// AssistantsEndpoint holds per-endpoint Assistants settings.
type AssistantsEndpoint struct {
	Version core.FlexString `json:"version,omitempty" yaml:"version,omitempty"`
}

// AzureEndpoint holds the Azure OpenAI deployment groups.
type AzureEndpoint struct {
	Assistants bool              `json:"assistants" yaml:"assistants"`
	Groups     []core.AzureGroup `json:"groups" yaml:"groups"`
}

// LoadEndpointsFile reads the endpoints file. A missing file yields an empty config.
func LoadEndpointsFile(path string, logger core.Logger) (EndpointsFile, error) {
	var file EndpointsFile
	if path == "" {
		return file, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Endpoints config %s not found, using defaults", path)
			return file, nil
		}
		return file, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = sonic.Unmarshal(data, &file)
	}
	if err != nil {
		return file, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	logger.Info("Loaded endpoints config from %s", path)
	return file, nil
}

// BuildEndpointsConfig derives the cacheable endpoints config. Only enabled
// endpoints get an entry.
func BuildEndpointsConfig(file EndpointsFile, directEnabled bool, azure *core.AzureAssistantsConfig) core.EndpointsConfig {
	result := make(core.EndpointsConfig)

	if directEnabled {
		entry := core.EndpointConfig{}
		if file.Endpoints.Assistants != nil {
			entry.Version = file.Endpoints.Assistants.Version
		}
		result[core.EndpointAssistants.String()] = entry
	}

	if azure.HasAssistants() {
		entry := core.EndpointConfig{}
		if file.Endpoints.AzureAssistants != nil {
			entry.Version = file.Endpoints.AzureAssistants.Version
		}
		result[core.EndpointAzureAssistants.String()] = entry
	}

	return result
}
