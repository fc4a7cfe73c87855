package config

import (
	"fmt"
	"time"

	"assistantsproxy/internal/core"
	"assistantsproxy/internal/util"

	"github.com/caarlos0/env/v10"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port                string             `env:"PORT" envDefault:"3080"`
	GinMode             string             `env:"GIN_MODE" envDefault:"release"`
	ClientAPIKeys       []string           `env:"CLIENT_API_KEYS" envSeparator:","`
	RateLimit           int                `env:"RATE_LIMIT" envDefault:"120"`
	CORSAllowOrigin     string             `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`
	RedisURL            string             `env:"REDIS_URL"`
	StatsFilePath       string             `env:"STATS_FILE" envDefault:"stats.json"`
	EndpointsConfigPath string             `env:"ENDPOINTS_CONFIG_PATH" envDefault:"endpoints.json"`
	EndpointsCacheTTL   time.Duration      `env:"ENDPOINTS_CACHE_TTL" envDefault:"0s"`
	Assistants          DirectSettings     `envPrefix:"ASSISTANTS_"`
	HTTPClientSettings  HTTPClientSettings `envPrefix:"HTTP_"`

	Endpoints   EndpointsFile               `env:"-"`
	Azure       *core.AzureAssistantsConfig `env:"-"`
	Storage     core.StorageInterface       `env:"-"`
	ConfigStore core.ConfigStore            `env:"-"`
	Logger      core.Logger                 `env:"-"`
}

// DirectSettings configures the direct OpenAI Assistants endpoint.
type DirectSettings struct {
	APIKey       string `env:"API_KEY"`
	BaseURL      string `env:"BASE_URL"`
	Organization string `env:"ORGANIZATION"`
}

// Enabled reports whether the direct endpoint has credentials.
func (d DirectSettings) Enabled() bool {
	return d.APIKey != ""
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int           `env:"MAX_IDLE_CONNS" envDefault:"200"`
	MaxIdleConnsPerHost int           `env:"MAX_IDLE_CONNS_PER_HOST" envDefault:"50"`
	MaxConnsPerHost     int           `env:"MAX_CONNS_PER_HOST" envDefault:"100"`
	IdleConnTimeout     time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	TLSHandshakeTimeout time.Duration `env:"TLS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
		RequestTimeout:      core.HTTPRequestTimeout,
	}
}

// WithDefaults fills unset (zero or negative) fields from DefaultHTTPClientSettings.
func (s HTTPClientSettings) WithDefaults() HTTPClientSettings {
	d := DefaultHTTPClientSettings()
	if s.MaxIdleConns <= 0 {
		s.MaxIdleConns = d.MaxIdleConns
	}
	if s.MaxIdleConnsPerHost <= 0 {
		s.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if s.MaxConnsPerHost <= 0 {
		s.MaxConnsPerHost = d.MaxConnsPerHost
	}
	if s.IdleConnTimeout <= 0 {
		s.IdleConnTimeout = d.IdleConnTimeout
	}
	if s.TLSHandshakeTimeout <= 0 {
		s.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = d.RequestTimeout
	}
	return s
}

// LoadServerConfigFromEnv loads server config from environment variables
// and the endpoints file it points to.
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.ClientAPIKeys = util.TrimList(cfg.ClientAPIKeys)
	if len(cfg.ClientAPIKeys) == 0 {
		logger.Warn("CLIENT_API_KEYS environment variable is empty")
	} else {
		logger.Info("Loaded %d client API keys", len(cfg.ClientAPIKeys))
	}

	if cfg.RateLimit <= 0 {
		logger.Warn("Invalid RATE_LIMIT value %d, using default %d", cfg.RateLimit, core.DefaultRateLimit)
		cfg.RateLimit = core.DefaultRateLimit
	}

	endpoints, err := LoadEndpointsFile(cfg.EndpointsConfigPath, logger)
	if err != nil {
		return cfg, err
	}
	cfg.Endpoints = endpoints

	azureCfg, err := BuildAzureConfig(endpoints.Endpoints.AzureOpenAI)
	if err != nil {
		return cfg, fmt.Errorf("invalid azure configuration: %w", err)
	}
	cfg.Azure = azureCfg

	if cfg.Assistants.Enabled() {
		logger.Info("Direct assistants endpoint enabled (key %s)", util.MaskSecret(cfg.Assistants.APIKey))
	} else {
		logger.Warn("ASSISTANTS_API_KEY is empty, direct assistants endpoint disabled")
	}
	if azureCfg.HasAssistants() {
		logger.Info("Azure assistants endpoint enabled with %d groups", len(azureCfg.AssistantGroups))
	}

	return cfg, nil
}
