package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AuthEntry holds API key credentials for a provider.
type AuthEntry struct {
	Type   string `json:"type,omitempty"`
	Key    string `json:"key,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

// DefaultAuthPath returns the default auth file path.
func DefaultAuthPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".vcce-server", "auth.json"), nil
}

// ResolveAPIKey resolves the API key for a provider from the
// environment or the auth file, in that order.
func ResolveAPIKey(provider string) (string, error) {
	providerKey := strings.ToLower(strings.TrimSpace(provider))
	if providerKey == "" {
		providerKey = "openai"
	}

	envVar := strings.ToUpper(providerKey) + "_API_KEY"
	if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
		return value, nil
	}

	authPath, err := DefaultAuthPath()
	if err != nil {
		return "", err
	}
	return readAuthKey(authPath, providerKey, envVar)
}

func readAuthKey(authPath, providerKey, envVar string) (string, error) {
	data, err := os.ReadFile(authPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no API key: set %s, send setApiKey, or add %s", envVar, authPath)
		}
		return "", fmt.Errorf("failed to read auth file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("failed to parse auth file: %w", err)
	}

	entryRaw, ok := raw[providerKey]
	if !ok {
		for key, value := range raw {
			if strings.EqualFold(key, providerKey) {
				entryRaw = value
				ok = true
				break
			}
		}
	}
	if !ok {
		return "", fmt.Errorf("no credentials for %q in %s", providerKey, authPath)
	}

	// A bare string entry is accepted alongside the structured form.
	var key string
	if err := json.Unmarshal(entryRaw, &key); err == nil {
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}

	var entry AuthEntry
	if err := json.Unmarshal(entryRaw, &entry); err != nil {
		return "", fmt.Errorf("invalid auth entry for %q in %s", providerKey, authPath)
	}
	if entry.APIKey != "" {
		return entry.APIKey, nil
	}
	if entry.Key != "" {
		return entry.Key, nil
	}

	return "", fmt.Errorf("empty credentials for %q in %s", providerKey, authPath)
}

// SaveAPIKey persists an API key for a provider to the auth file,
// preserving entries for other providers.
func SaveAPIKey(provider, key string) error {
	providerKey := strings.ToLower(strings.TrimSpace(provider))
	if providerKey == "" {
		providerKey = "openai"
	}

	authPath, err := DefaultAuthPath()
	if err != nil {
		return err
	}
	return writeAuthKey(authPath, providerKey, key)
}

func writeAuthKey(authPath, providerKey, key string) error {
	entries := map[string]json.RawMessage{}
	if data, err := os.ReadFile(authPath); err == nil {
		// Preserve other providers; a corrupt file starts over.
		_ = json.Unmarshal(data, &entries)
	}

	entryData, err := json.Marshal(AuthEntry{Type: "api", APIKey: key})
	if err != nil {
		return fmt.Errorf("failed to marshal auth entry: %w", err)
	}
	entries[providerKey] = entryData

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(authPath), 0700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}
	if err := os.WriteFile(authPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}
