package validate

import (
	"strings"
	"unicode/utf8"

	"aitex/internal/core"
)

// ValidateConfig checks that cfg is well formed enough to contact an endpoint.
// Checks run in a fixed order and stop at the first failure: required fields
// first, then the URL scheme, then the key length.
func ValidateConfig(cfg core.RecognitionConfig) error {
	required := []struct {
		field string
		value string
	}{
		{"provider", cfg.Provider},
		{"api_url", cfg.APIBaseURL},
		{"api_key", cfg.APIKey},
		{"model_name", cfg.ModelName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return core.ErrInvalidConfig(r.field, "must not be empty")
		}
	}

	if !strings.HasPrefix(cfg.APIBaseURL, core.SchemeHTTPPrefix) && !strings.HasPrefix(cfg.APIBaseURL, core.SchemeHTTPSPrefix) {
		return core.ErrInvalidConfig("api_url", "must start with http:// or https://")
	}

	if utf8.RuneCountInString(cfg.APIKey) < core.MinAPIKeyLength {
		return core.ErrInvalidConfig("api_key", "is too short")
	}

	return nil
}
