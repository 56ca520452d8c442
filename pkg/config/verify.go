package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	// parse schema to make sure the embedded copy is not stale garbage
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// validateRequiredFields checks the fields the schema marks required
func validateRequiredFields(cfg *Config) error {
	if cfg.Providers.NewsAPI.APIKey == "" {
		return fmt.Errorf("providers.newsapi.api_key is required by schema")
	}
	if cfg.Providers.GNews.APIKey == "" {
		return fmt.Errorf("providers.gnews.api_key is required by schema")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required by schema")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required by schema")
	}
	return nil
}
