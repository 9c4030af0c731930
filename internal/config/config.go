package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"aitex/internal/core"
	"aitex/internal/util"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port               string
	GinMode            string
	ClientAPIKeys      []string
	ConfigPath         string
	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface
	Logger             core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	RequestTimeout      time.Duration
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

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	clientAPIKeys := util.ParseEnvList(os.Getenv("CLIENT_API_KEYS"))
	if len(clientAPIKeys) == 0 {
		logger.Warn("CLIENT_API_KEYS environment variable is empty")
	} else {
		logger.Info("Loaded %d client API keys", len(clientAPIKeys))
	}

	httpSettings := DefaultHTTPClientSettings()
	httpSettings.RequestTimeout = util.GetEnvDuration("REQUEST_TIMEOUT", core.HTTPRequestTimeout)

	config := ServerConfig{
		Port:               util.GetEnvWithDefault("PORT", core.DefaultPort),
		GinMode:            util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode),
		ClientAPIKeys:      clientAPIKeys,
		ConfigPath:         util.GetEnvWithDefault("CONFIG_FILE", DefaultConfigPath()),
		HTTPClientSettings: httpSettings,
	}

	logger.Debug("Recognition config path: %s, request timeout: %s", config.ConfigPath, httpSettings.RequestTimeout)

	return config, nil
}

// DefaultRecognitionConfig returns the configuration used before anything is saved.
func DefaultRecognitionConfig() core.RecognitionConfig {
	return core.RecognitionConfig{
		Enabled:      true,
		Provider:     core.DefaultProvider,
		APIBaseURL:   core.DefaultAPIBaseURL,
		APIKey:       "",
		ModelName:    core.DefaultModelName,
		SystemPrompt: core.DefaultSystemPrompt,
	}
}

// LoadRecognitionConfig reads the persisted configuration, falling back to
// defaults when nothing is stored or the stored value cannot be read, then
// applies LLM_* environment overrides.
func LoadRecognitionConfig(storage core.StorageInterface, logger core.Logger) core.RecognitionConfig {
	cfg := DefaultRecognitionConfig()

	if storage != nil {
		saved, err := storage.LoadConfig()
		switch {
		case err != nil:
			logger.Warn("Failed to load saved recognition config, using defaults: %v", err)
		case saved == nil:
			logger.Info("No saved recognition config, using defaults")
		default:
			cfg = *saved
		}
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// ApplyEnvOverrides replaces fields of cfg with any LLM_* variables that are set.
func ApplyEnvOverrides(cfg *core.RecognitionConfig) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LLM_PROVIDER", &cfg.Provider},
		{"LLM_API_URL", &cfg.APIBaseURL},
		{"LLM_API_KEY", &cfg.APIKey},
		{"LLM_MODEL", &cfg.ModelName},
		{"LLM_SYSTEM_PROMPT", &cfg.SystemPrompt},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.env); ok && value != "" {
			*o.target = value
		}
	}
	cfg.Enabled = util.GetEnvBool("LLM_ENABLED", cfg.Enabled)
}

// DefaultConfigPath returns where the recognition config file lives:
// the user config dir, then a home-relative location, then the working dir.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, core.AppConfigDir, core.ConfigFileName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", core.AppConfigDir, core.ConfigFileName)
		}
		return filepath.Join(home, ".config", "aitex", core.ConfigFileName)
	}
	return filepath.Join(".aitex", core.ConfigFileName)
}
