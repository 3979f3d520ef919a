package directory

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"provisiond/internal/config"
	"provisiond/internal/infra/gcpclient"
	"provisiond/internal/infra/vaultclient"
)

// LoadServiceAccountKey fetches the service-account JSON from the source named
// by GOOGLE_KEY_SOURCE. Values may be raw JSON or base64 of it.
func LoadServiceAccountKey(ctx context.Context, cfg config.Config) ([]byte, error) {
	var raw []byte
	switch cfg.GoogleKeySource {
	case config.KeySourceEnv, "":
		raw = []byte(cfg.GoogleServiceAccountKey)
	case config.KeySourceVault:
		client, err := vaultclient.New(cfg.VaultAddr, cfg.VaultToken, nil)
		if err != nil {
			return nil, err
		}
		value, err := client.ReadField(ctx, cfg.VaultServiceKeyPath, cfg.VaultServiceKeyName)
		if err != nil {
			return nil, fmt.Errorf("service account key from vault: %w", err)
		}
		raw = []byte(value)
	case config.KeySourceGCP:
		client, err := gcpclient.NewFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		raw, err = client.AccessSecret(ctx, cfg.GCPServiceKeySecretID)
		if err != nil {
			return nil, fmt.Errorf("service account key from secret manager: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported key source %q", cfg.GoogleKeySource)
	}
	return decodeKey(raw)
}

func decodeKey(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("service account key is empty")
	}
	if raw[0] == '{' {
		return raw, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("service account key is neither JSON nor base64: %w", err)
	}
	return decoded, nil
}
