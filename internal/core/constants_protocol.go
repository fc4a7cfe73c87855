package core

// Default config constants
const (
	DefaultPort                = "3080"
	DefaultGinMode             = "release"
	DefaultEndpointsConfigPath = "endpoints.json"
	CORSMaxAge                 = "86400"
)

// Content type and header constants
const (
	ContentTypeJSON     = "application/json"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXAPIKey       = "x-api-key"
	HeaderRequestID     = "X-Request-Id"
	AuthBearerPrefix    = "Bearer "
)
