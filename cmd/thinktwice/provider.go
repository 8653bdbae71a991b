package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/config"
)

// APIKeyEnvVar supplies the key when the --api-key flag is absent.
const APIKeyEnvVar = "THINKTWICE_API_KEY"

// loadConfig resolves configuration: an explicit --config path wins,
// otherwise .thinktwice.yaml is searched upward from the working directory.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// resolveAPIKey picks the key from the flag or the environment.
func resolveAPIKey(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if key := os.Getenv(APIKeyEnvVar); key != "" {
		return key, nil
	}
	return "", errors.New("no API key: pass --api-key or set " + APIKeyEnvVar)
}

// buildSource wires config and key into a completion source.
func buildSource(cfg *config.Config, apiKeyFlag string) (completion.Source, error) {
	key, err := resolveAPIKey(apiKeyFlag)
	if err != nil {
		return nil, err
	}
	return buildSourceWithKey(cfg, key)
}

func buildSourceWithKey(cfg *config.Config, key string) (completion.Source, error) {
	opts, err := cfg.CompletionOptions(key)
	if err != nil {
		return nil, fmt.Errorf("building provider options: %w", err)
	}
	return completion.NewOpenAISource(opts)
}
