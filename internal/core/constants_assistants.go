package core

// Endpoint identifies which provider serves an Assistants request.
type Endpoint string

// Supported endpoints.
const (
	EndpointAssistants      Endpoint = "assistants"
	EndpointAzureAssistants Endpoint = "azureAssistants"
)

// ParseEndpoint maps a raw endpoint name onto the closed Endpoint set.
func ParseEndpoint(name string) (Endpoint, bool) {
	switch Endpoint(name) {
	case EndpointAssistants:
		return EndpointAssistants, true
	case EndpointAzureAssistants:
		return EndpointAzureAssistants, true
	}
	return "", false
}

// String returns the endpoint name.
func (e Endpoint) String() string {
	return string(e)
}

// DefaultAssistantsVersions is consulted when neither the request nor the
// endpoints config cache carries a version.
var DefaultAssistantsVersions = map[Endpoint]int{
	EndpointAssistants:      2,
	EndpointAzureAssistants: 1,
}

// Cache key constants
const (
	ConfigStoreNamespace = "CONFIG_STORE"
	EndpointConfigKey    = "ENDPOINT_CONFIG"
)

// Assistants API constants
const (
	ListObjectType   = "list"
	VersionPrefix    = "v"
	VersionLength    = 2
	DefaultListLimit = 100
	MaxListLimit     = 100
	ListOrderAsc     = "asc"
	ListOrderDesc    = "desc"
	DefaultListOrder = ListOrderDesc
)

// Azure constants
const (
	AzureBaseURLTemplate   = "https://%s.openai.azure.com/"
	DefaultAzureAPIVersion = "2024-05-01-preview"
)

// Metric label constants
const (
	ResultLabelSuccess = "success"
	ResultLabelFailure = "failure"
	DirectGroupLabel   = "direct"
)
