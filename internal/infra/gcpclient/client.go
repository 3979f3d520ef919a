package gcpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"provisiond/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client reads secret payloads from Secret Manager.
type Client struct {
	endpoint   string
	projectID  string
	httpClient *http.Client
}

func New(endpoint, projectID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		httpClient: httpClient,
	}
}

// NewFromConfig authenticates with application default credentials.
func NewFromConfig(ctx context.Context, cfg config.Config) (*Client, error) {
	if cfg.GCPProjectID == "" {
		return nil, errors.New("GCP_PROJECT_ID is required")
	}
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("gcp credentials: %w", err)
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 10 * time.Second
	return New(cfg.GCPSecretManagerEndpoint, cfg.GCPProjectID, httpClient), nil
}

func (c *Client) AccessSecret(ctx context.Context, secretID string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("gcp client is nil")
	}
	if secretID == "" {
		return nil, errors.New("secret id is required")
	}
	if c.endpoint == "" || c.projectID == "" {
		return nil, errors.New("gcp client missing configuration")
	}
	url := fmt.Sprintf("%s/v1/projects/%s/secrets/%s/versions/latest:access", c.endpoint, c.projectID, secretID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gcp secret manager failed: status %d", resp.StatusCode)
	}
	var out struct {
		Payload struct {
			Data string `json:"data"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Payload.Data == "" {
		return nil, errors.New("secret payload missing")
	}
	return base64.StdEncoding.DecodeString(out.Payload.Data)
}
