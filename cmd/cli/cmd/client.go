package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cartflow/pkg/api"
)

// EngineClient handles API calls to the cartflow engine.
type EngineClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewEngineClient creates a new client with the given base URL and token.
func NewEngineClient(baseURL, token string) *EngineClient {
	return &EngineClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *EngineClient) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// CreateTenant sends POST /tenants to onboard a new tenant.
func (c *EngineClient) CreateTenant(req api.CreateTenantRequest) (*api.CreateTenantResponse, error) {
	var result api.CreateTenantResponse
	if err := c.do(http.MethodPost, "/tenants", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTenants sends GET /tenants to list onboarded tenants.
func (c *EngineClient) ListTenants() (*api.ListTenantsResponse, error) {
	var result api.ListTenantsResponse
	if err := c.do(http.MethodGet, "/tenants", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trigger sends POST /triggers with a cart-abandoned event.
func (c *EngineClient) Trigger(payload map[string]interface{}) (*api.TriggerResponse, error) {
	var result api.TriggerResponse
	if err := c.do(http.MethodPost, "/triggers", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun sends GET /runs/{id} to retrieve run details.
func (c *EngineClient) GetRun(runID string) (*api.RunResponse, error) {
	var result api.RunResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/runs/%s", runID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRuns sends GET /runs to list the tenant's recent runs.
func (c *EngineClient) ListRuns(limit, offset int) (*api.ListRunsResponse, error) {
	var result api.ListRunsResponse
	path := fmt.Sprintf("/runs?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
