package httpclient

import (
	"time"

	"github.com/physiolab/soapnote/internal/resilience"
)

// Config holds HTTP client configuration.
type Config struct {
	// BaseURL is the base URL for all requests.
	BaseURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Auth is the optional authentication configuration.
	Auth *AuthConfig
	// Headers are default headers applied to every request.
	Headers map[string]string
	// Retry is the retry policy applied around each request. A nil policy
	// disables retries.
	Retry *resilience.RetryConfig
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// BearerToken is sent as "Authorization: Bearer <token>" when set.
	BearerToken string
	// APIKey is sent under APIKeyHeader when set.
	APIKey string
	// APIKeyHeader names the header for APIKey. Defaults to "X-API-Key".
	APIKeyHeader string
}

// DefaultConfig returns a config with sensible defaults for sidecar services.
func DefaultConfig(baseURL string) Config {
	retry := resilience.DefaultRetryConfig()
	retry.RetryIf = IsRetryable
	return Config{
		BaseURL: baseURL,
		Timeout: 60 * time.Second,
		Retry:   &retry,
	}
}
