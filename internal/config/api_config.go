package config

import "time"

type APIConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetProbeTimeout() time.Duration
	AllowFallback() bool
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the base URL of the club service API, including the
// version prefix (e.g. "http://localhost:8000/api/v1").
func (API) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, "http://localhost:8000/api/v1")
}

func (API) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}

func (API) GetProbeTimeout() time.Duration {
	return 2 * time.Second
}

// AllowFallback reports whether the client may degrade to the synthetic
// dataset when the live service is unreachable. Only enabled outside PROD.
func (a API) AllowFallback() bool {
	return EnvVars{}.GetEnv() != "PROD"
}
