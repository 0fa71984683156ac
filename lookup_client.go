package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-policy-wizard/models"
)

// HttpLookupClient resolves resident identities from the passport registry.
// It implements wizard.IdentityLookup.
type HttpLookupClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHttpLookupClient creates a new instance of HttpLookupClient
func NewHttpLookupClient(baseURL, token string) *HttpLookupClient {
	return &HttpLookupClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LookupPassport queries POST /info/person with passport series, number and
// birthday. A response with result != 0 means no match; the caller decides
// how to surface that.
func (c *HttpLookupClient) LookupPassport(ctx context.Context, request models.LookupRequest) (models.LookupResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return models.LookupResponse{}, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info/person", bytes.NewBuffer(jsonData))
	if err != nil {
		return models.LookupResponse{}, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.LookupResponse{}, fmt.Errorf("failed to execute lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.LookupResponse{}, apiError(resp)
	}

	var response models.LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.LookupResponse{}, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	slog.Debug("Passport lookup response received", "result", response.Result)
	return response, nil
}
