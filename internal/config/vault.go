package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/vault/api"
	"github.com/spf13/viper"
)

// SecretManager wraps the Vault API client for reading secrets.
type SecretManager struct {
	client *api.Client
}

// NewSecretManager creates a Vault client pointed at the given address and
// authenticated with the provided token.
func NewSecretManager(address, token string) (*SecretManager, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client initialization failed: %w", err)
	}
	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// GetKV2 reads from a KV v2 backend and returns the inner "data" map,
// unwrapping the v2 envelope automatically.
func (s *SecretManager) GetKV2(path string) (map[string]interface{}, error) {
	secret, err := s.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected data format at %s", path)
	}
	return data, nil
}

// Keys the Vault overlay may supply. Environment values always win; the
// overlay only fills options that are still empty after env binding.
var vaultOverlayKeys = map[string]string{
	"PG_URL":         "DATABASE_URL",
	"WEBHOOK_SECRET": "WEBHOOK_SECRET",
	"CURSOR_SECRET":  "CURSOR_SECRET",
}

// overlayVaultSecrets fills missing secret-bearing options from Vault when
// VAULT_ADDR and VAULT_TOKEN are present. A missing secret path falls back to
// "secret/data/docflow".
func overlayVaultSecrets(v *viper.Viper) error {
	addr := os.Getenv("VAULT_ADDR")
	token := os.Getenv("VAULT_TOKEN")
	if addr == "" || token == "" {
		return nil
	}
	path := os.Getenv("VAULT_SECRET_PATH")
	if path == "" {
		path = "secret/data/docflow"
	}

	sm, err := NewSecretManager(addr, token)
	if err != nil {
		return err
	}
	data, err := sm.GetKV2(path)
	if err != nil {
		return err
	}

	for secretKey, option := range vaultOverlayKeys {
		if v.GetString(option) != "" {
			continue
		}
		if raw, ok := data[secretKey]; ok {
			if s, ok := raw.(string); ok && s != "" {
				v.Set(option, s)
			}
		}
	}
	return nil
}
