// Package provisioning implements the synchronous HTTP client for a
// peripheral node's tenant-management API.
package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clinic-federation-service/internal/observability"
)

const maxResponseBodyBytes = 1 << 20

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// Timeout bounds connect+read for one outbound call. It must be shorter
	// than the caller's own inbound deadline.
	Timeout time.Duration
	// Username/Password authenticate this registry against every peripheral
	// node's tenant API.
	Username string
	Password string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient HTTPDoer
}

// TenantPayload is the wire body for tenant create/update. Every field except
// ID is omitted when blank so existing peripheral nodes keep parsing it.
type TenantPayload struct {
	ID             uint   `json:"id"`
	LegalID        string `json:"legalId,omitempty"`
	Name           string `json:"name,omitempty"`
	Department     string `json:"department,omitempty"`
	Locality       string `json:"locality,omitempty"`
	Address        string `json:"address,omitempty"`
	RemoteBaseURL  string `json:"remoteBaseUrl,omitempty"`
	RemoteUser     string `json:"remoteUser,omitempty"`
	RemotePassword string `json:"remotePassword,omitempty"`
	Contact        string `json:"contact,omitempty"`
	URL            string `json:"url,omitempty"`
}

type InitResult struct {
	Success         bool
	AdminNickname   string
	ActivationURL   string
	ActivationToken string
	TokenExpiresAt  *time.Time
	ErrorMessage    string
}

type initResponse struct {
	AdminNickname   string `json:"adminNickname"`
	ActivationURL   string `json:"activationUrl"`
	ActivationToken string `json:"activationToken"`
	TokenExpiresAt  string `json:"tokenExpiresAt"`
}

// Client talks to peripheral-node tenant APIs. All methods are fail-soft:
// transport and parse failures become negative results, never panics or raw
// transport errors.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// NormalizeBaseURL strips exactly one trailing slash.
func NormalizeBaseURL(raw string) string {
	return strings.TrimSuffix(raw, "/")
}

// InitializeTenant provisions the tenant on the peripheral node and returns
// whatever activation material the node hands back.
func (c *Client) InitializeTenant(ctx context.Context, baseURL string, payload TenantPayload) InitResult {
	if strings.TrimSpace(baseURL) == "" {
		return InitResult{Success: false, ErrorMessage: "baseUrl must not be blank"}
	}
	endpoint := NormalizeBaseURL(baseURL) + "/tenants"
	body, err := c.send(ctx, http.MethodPost, endpoint, &payload)
	if err != nil {
		observability.RecordRemoteProvisioningCall(ctx, "init", "error")
		return InitResult{Success: false, ErrorMessage: err.Error()}
	}

	var parsed initResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		observability.RecordRemoteProvisioningCall(ctx, "init", "error")
		return InitResult{Success: false, ErrorMessage: fmt.Sprintf("parse tenant response: %v", err)}
	}
	observability.RecordRemoteProvisioningCall(ctx, "init", "success")
	return InitResult{
		Success:         true,
		AdminNickname:   parsed.AdminNickname,
		ActivationURL:   parsed.ActivationURL,
		ActivationToken: parsed.ActivationToken,
		TokenExpiresAt:  parseRemoteTime(parsed.TokenExpiresAt),
	}
}

// UpdateTenant pushes the current registry record; false on any failure.
func (c *Client) UpdateTenant(ctx context.Context, baseURL string, payload TenantPayload) bool {
	if strings.TrimSpace(baseURL) == "" || payload.ID == 0 {
		return false
	}
	endpoint := fmt.Sprintf("%s/tenants/%d", NormalizeBaseURL(baseURL), payload.ID)
	if _, err := c.send(ctx, http.MethodPut, endpoint, &payload); err != nil {
		observability.RecordRemoteProvisioningCall(ctx, "update", "error")
		return false
	}
	observability.RecordRemoteProvisioningCall(ctx, "update", "success")
	return true
}

// DeleteTenant tears the tenant down; false on any failure.
func (c *Client) DeleteTenant(ctx context.Context, baseURL, legalID string) bool {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(legalID) == "" {
		return false
	}
	endpoint := fmt.Sprintf("%s/tenants/%s", NormalizeBaseURL(baseURL), strings.TrimSpace(legalID))
	if _, err := c.send(ctx, http.MethodDelete, endpoint, nil); err != nil {
		observability.RecordRemoteProvisioningCall(ctx, "delete", "error")
		return false
	}
	observability.RecordRemoteProvisioningCall(ctx, "delete", "success")
	return true
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload *TenantPayload) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode tenant payload: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build tenant request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call peripheral node: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read tenant response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("peripheral node returned %s", resp.Status)
	}
	return body, nil
}

func parseRemoteTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
