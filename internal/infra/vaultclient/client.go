package vaultclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

var ErrSecretNotFound = errors.New("vault secret not found")

// Client reads fields out of KV v2 secrets.
type Client struct {
	client *api.Client
}

func New(address, token string, httpClient *http.Client) (*Client, error) {
	if address == "" {
		return nil, errors.New("vault address is required")
	}
	cfg := api.DefaultConfig()
	cfg.Address = address
	if httpClient != nil {
		cfg.HttpClient = httpClient
	} else {
		cfg.HttpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(token)
	return &Client{client: client}, nil
}

// ReadField returns one field of a KV v2 secret. path is "<mount>/<name>";
// the data/ segment is added here.
func (c *Client) ReadField(ctx context.Context, path, field string) (string, error) {
	mount, name, ok := strings.Cut(strings.Trim(path, "/"), "/")
	if !ok || mount == "" || name == "" {
		return "", fmt.Errorf("vault path %q must be <mount>/<name>", path)
	}
	secret, err := c.client.Logical().ReadWithContext(ctx, mount+"/data/"+name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("read %s: unexpected kv response", path)
	}
	value, ok := data[field].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: field %q", ErrSecretNotFound, field)
	}
	return value, nil
}
