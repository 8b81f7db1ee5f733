package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Decision is the remote endpoint's answer to an authorization question.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

// Authorizer is the remote authorization endpoint consumed by the decision
// engine. The engine treats any returned error as a deny.
type Authorizer interface {
	Authorize(ctx context.Context, principalID, resource string) (Decision, error)
}

// PlantDirectory resolves a user's plant assignments when the credential
// claims do not carry them.
type PlantDirectory interface {
	PlantsFor(ctx context.Context, userID string) ([]string, error)
}

// Config configures the HTTP authorization client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient calls the portal's authorization endpoint over HTTP. A failed
// transport attempt is retried exactly once; a definitive deny is never
// retried.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates an authorization client for the given endpoint.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type checkRequest struct {
	PrincipalID string `json:"principal_id"`
	Resource    string `json:"resource"`
}

// Authorize asks the remote endpoint whether principalID may access
// resource. Transport failures are retried once before giving up.
func (c *HTTPClient) Authorize(ctx context.Context, principalID, resource string) (Decision, error) {
	body, err := json.Marshal(checkRequest{PrincipalID: principalID, Resource: resource})
	if err != nil {
		return Decision{}, fmt.Errorf("marshal check request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}

		decision, err := c.check(ctx, body)
		if err == nil {
			return decision, nil
		}
		lastErr = err
	}
	return Decision{}, lastErr
}

func (c *HTTPClient) check(ctx context.Context, body []byte) (Decision, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/authz/check", bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("authorization endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return Decision{}, fmt.Errorf("authorization endpoint returned status %d", resp.StatusCode)
	}

	var decision Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return Decision{}, fmt.Errorf("decode authorization response: %w", err)
	}
	return decision, nil
}

// PlantsFor fetches the user's plant assignments from the directory
// endpoint. Used only as a fallback when claims omit plants.
func (c *HTTPClient) PlantsFor(ctx context.Context, userID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/"+userID+"/plants", nil)
	if err != nil {
		return nil, fmt.Errorf("build plants request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plant directory unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("plant directory returned status %d", resp.StatusCode)
	}

	var payload struct {
		Plants []string `json:"plants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode plants response: %w", err)
	}
	return payload.Plants, nil
}
