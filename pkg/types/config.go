package types

// Config represents the aibridge configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Model selection, "provider/model" (e.g. "anthropic/claude-sonnet-4-20250514")
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// System instruction installed on every new session, unless the caller
	// supplies one explicitly.
	SystemInstruction string `json:"systemInstruction,omitempty" yaml:"systemInstruction,omitempty"`

	// Prompt timeout in milliseconds. Zero means effectively unbounded.
	PromptTimeoutMS int64 `json:"promptTimeoutMs,omitempty" yaml:"promptTimeoutMs,omitempty"`

	// Maximum engine turns per request, forwarded to the engine.
	MaxTurnsPerRequest int `json:"maxTurnsPerRequest,omitempty" yaml:"maxTurnsPerRequest,omitempty"`

	// Provider configs keyed by provider ID.
	Provider map[string]ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// Model/endpoint ID for providers that require endpoint specification.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Disable provider.
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`
}
