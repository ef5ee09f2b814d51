package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aibridge-dev/aibridge/internal/config"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

const (
	defaultProviderID = "anthropic"
	defaultModelID    = "claude-sonnet-4-20250514"
	defaultMaxTokens  = 8192
)

// parseModelRef splits a "provider/model" reference, falling back to the
// defaults when either half is missing.
func parseModelRef(ref string) (providerID, modelID string) {
	providerID = defaultProviderID
	modelID = defaultModelID
	if ref == "" {
		return
	}
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return providerID, parts[0]
}

// buildChatModel constructs the eino chat model for a provider. In API-key
// mode the key comes from config or environment; in OAuth and Vertex modes
// requests route through the configured base URL, which injects credentials.
func buildChatModel(ctx context.Context, providerID, modelID string, cfg *types.Config, mode config.AuthMode) (model.ToolCallingChatModel, error) {
	var pc types.ProviderConfig
	if cfg != nil {
		pc = cfg.Provider[providerID]
	}
	if pc.Disable {
		return nil, fmt.Errorf("provider disabled: %s", providerID)
	}
	if pc.Model != "" {
		modelID = pc.Model
	}

	maxTokens := defaultMaxTokens

	switch providerID {
	case "anthropic", "claude":
		apiKey := pc.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if mode == config.AuthAPIKey && apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		if mode != config.AuthAPIKey && pc.BaseURL == "" {
			return nil, fmt.Errorf("auth mode %s requires a provider base URL", mode)
		}
		mc := &claude.Config{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: maxTokens,
		}
		if pc.BaseURL != "" {
			mc.BaseURL = &pc.BaseURL
		}
		cm, err := claude.NewChatModel(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude model: %w", err)
		}
		return cm, nil

	case "openai":
		apiKey := pc.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if mode == config.AuthAPIKey && apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		mc := &openai.ChatModelConfig{
			APIKey:              apiKey,
			Model:               modelID,
			MaxCompletionTokens: &maxTokens,
		}
		if pc.BaseURL != "" {
			mc.BaseURL = pc.BaseURL
		}
		cm, err := openai.NewChatModel(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return cm, nil

	case "ark":
		apiKey := pc.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ARK_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ARK_API_KEY not set")
		}
		mc := &ark.ChatModelConfig{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: &maxTokens,
		}
		if pc.BaseURL != "" {
			mc.BaseURL = pc.BaseURL
		}
		cm, err := ark.NewChatModel(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create ARK model: %w", err)
		}
		return cm, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}
}

// toEinoTools converts tool definitions to the eino format.
func toEinoTools(tools []types.ToolInfo) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		params := parseJSONSchemaToParams(t.Parameters)
		result = append(result, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return result
}

// parseJSONSchemaToParams converts JSON Schema to eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON []byte) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
