package config

import (
	"fmt"

	"assistantsproxy/internal/core"
)

// BuildAzureConfig validates the Azure groups and indexes them by group and model name.
func BuildAzureConfig(endpoint *AzureEndpoint) (*core.AzureAssistantsConfig, error) {
	cfg := &core.AzureAssistantsConfig{
		GroupMap:      make(map[string]*core.AzureGroup),
		ModelGroupMap: make(map[string]string),
	}
	if endpoint == nil {
		return cfg, nil
	}

	for i := range endpoint.Groups {
		group := endpoint.Groups[i]
		if err := validateAzureGroup(&group, i); err != nil {
			return nil, err
		}
		if _, exists := cfg.GroupMap[group.Name]; exists {
			return nil, core.NewInvalidConfigError(groupField(i, "group"), fmt.Sprintf("duplicate group %q", group.Name))
		}

		for _, model := range group.Models.Names() {
			if owner, exists := cfg.ModelGroupMap[model]; exists {
				return nil, core.NewInvalidConfigError(
					groupField(i, "models"),
					fmt.Sprintf("model %q already declared by group %q", model, owner),
				)
			}
			cfg.ModelGroupMap[model] = group.Name
		}

		cfg.GroupMap[group.Name] = &group
		if endpoint.Assistants && group.Assistants {
			cfg.AssistantGroups = append(cfg.AssistantGroups, group.Name)
		}
	}

	return cfg, nil
}

func validateAzureGroup(group *core.AzureGroup, index int) error {
	if group.Name == "" {
		return core.NewInvalidConfigError(groupField(index, "group"), "name is required")
	}
	if group.APIKey == "" {
		return core.NewInvalidConfigError(groupField(index, "apiKey"), "api key is required")
	}
	if group.InstanceName == "" && group.BaseURL == "" {
		return core.NewInvalidConfigError(groupField(index, "instanceName"), "instanceName or baseURL is required")
	}
	if group.Models.Len() == 0 {
		return core.NewInvalidConfigError(groupField(index, "models"), "at least one model is required")
	}
	for _, model := range group.Models.Names() {
		if group.DeploymentFor(model) == "" {
			return core.NewInvalidConfigError(
				groupField(index, "models."+model),
				"deploymentName is required when the group has no default deployment",
			)
		}
	}
	return nil
}

func groupField(index int, field string) string {
	return fmt.Sprintf("azureOpenAI.groups[%d].%s", index, field)
}
