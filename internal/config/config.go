package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/aibridge/)
//  2. Project config (<directory>/.aibridge/ or <directory>/aibridge.*)
//  3. AIBRIDGE_CONFIG file override
//  4. Environment variables
//
// Both JSON/JSONC and YAML files are accepted.
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "aibridge.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "aibridge.jsonc"), globalPath)
	loadOnce(filepath.Join(globalPath, "aibridge.yaml"), globalPath)

	// 2. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".aibridge")
		loadOnce(filepath.Join(directory, "aibridge.json"), directory)
		loadOnce(filepath.Join(directory, "aibridge.jsonc"), directory)
		loadOnce(filepath.Join(directory, "aibridge.yaml"), directory)
		loadOnce(filepath.Join(projectConfigDir, "aibridge.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "aibridge.yaml"), projectConfigDir)
	}

	// 3. AIBRIDGE_CONFIG file override
	if configPath := os.Getenv("AIBRIDGE_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 4. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	var fileConfig types.Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	} else {
		// Strip JSONC comments using tidwall/jsonc
		data = jsonc.ToJSON(data)
		data = interpolate(data)
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
	return []byte(str)
}

// mergeConfig merges source into target; set fields in source win.
func mergeConfig(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SystemInstruction != "" {
		target.SystemInstruction = source.SystemInstruction
	}
	if source.PromptTimeoutMS != 0 {
		target.PromptTimeoutMS = source.PromptTimeoutMS
	}
	if source.MaxTurnsPerRequest != 0 {
		target.MaxTurnsPerRequest = source.MaxTurnsPerRequest
	}
	for id, p := range source.Provider {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		target.Provider[id] = p
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	// Provider API keys
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"ark":       "ARK_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("AIBRIDGE_MODEL"); model != "" {
		config.Model = model
	}

	if timeout := os.Getenv("AIBRIDGE_PROMPT_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.ParseInt(timeout, 10, 64); err == nil && ms > 0 {
			config.PromptTimeoutMS = ms
		}
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
