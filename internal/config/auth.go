package config

import (
	"os"
	"strconv"
	"strings"
)

// AuthMode selects how the engine connection authenticates.
type AuthMode string

const (
	// AuthOAuth is the default interactive OAuth credential.
	AuthOAuth AuthMode = "oauth"
	// AuthAPIKey authenticates with a provider API key.
	AuthAPIKey AuthMode = "api-key"
	// AuthVertex authenticates through a Vertex project.
	AuthVertex AuthMode = "vertex"
	// AuthForcedOAuth pins OAuth even when API keys are present.
	AuthForcedOAuth AuthMode = "forced-oauth"
)

// Environment variables consulted by ResolveAuthMode.
const (
	EnvForceOAuth = "AIBRIDGE_FORCE_OAUTH"
	EnvUseVertex  = "AIBRIDGE_USE_VERTEX"
	EnvAPIKey     = "AIBRIDGE_API_KEY"
)

// ResolveAuthMode derives the authentication mode from process environment.
// Precedence: forced-OAuth > Vertex > API-key > default OAuth. Read once
// before the first engine activation; later environment changes have no
// effect on live sessions.
func ResolveAuthMode() AuthMode {
	if envBool(EnvForceOAuth) {
		return AuthForcedOAuth
	}
	if envBool(EnvUseVertex) {
		return AuthVertex
	}
	if hasAPIKey() {
		return AuthAPIKey
	}
	return AuthOAuth
}

// hasAPIKey reports whether any API key credential is present.
func hasAPIKey() bool {
	for _, key := range []string{EnvAPIKey, "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "ARK_API_KEY"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// envBool parses a boolean-ish environment variable ("1", "true", "yes").
func envBool(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v == "yes" || v == "on"
}
