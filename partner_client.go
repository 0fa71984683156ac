package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go-policy-wizard/models"
)

// HttpPartnerClient talks to the insurance aggregator over its JSON API.
// It implements wizard.PartnerAPI.
type HttpPartnerClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHttpPartnerClient creates a new instance of HttpPartnerClient
func NewHttpPartnerClient(baseURL, token string) *HttpPartnerClient {
	return &HttpPartnerClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SearchQuotes fetches program quotes for the given criteria via POST /price.
func (c *HttpPartnerClient) SearchQuotes(ctx context.Context, request models.QuoteRequest) ([]models.PartnerResponse, error) {
	var responses []models.PartnerResponse
	if err := c.postJSON(ctx, "/price", request, &responses); err != nil {
		return nil, err
	}
	slog.Debug("Quote search response received", "partners", len(responses))
	return responses, nil
}

// CreateDraft registers a policy draft via POST /policy. The returned record
// carries the id used for issuance and the payment status poll.
func (c *HttpPartnerClient) CreateDraft(ctx context.Context, request models.DraftRequest) (models.PolicyRecord, error) {
	var record models.PolicyRecord
	if err := c.postJSON(ctx, "/policy", request, &record); err != nil {
		return models.PolicyRecord{}, err
	}
	slog.Info("Policy draft created", "policy_id", record.Id)
	return record, nil
}

// IssuePolicy asks the partner to issue a drafted policy via POST
// /policy/issue. HTTP 200 with success=false is a partner-side rejection and
// is returned to the caller as a response, not an error.
func (c *HttpPartnerClient) IssuePolicy(ctx context.Context, request models.IssueByIdRequest) (models.IssueResponse, error) {
	var response models.IssueResponse
	if err := c.postJSON(ctx, "/policy/issue", request, &response); err != nil {
		return models.IssueResponse{}, err
	}
	return response, nil
}

// GetPolicy reads the current state of a policy via GET /policy/{id}.
func (c *HttpPartnerClient) GetPolicy(ctx context.Context, id int) (models.PolicyRecord, error) {
	url := fmt.Sprintf("%s/policy/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.PolicyRecord{}, fmt.Errorf("failed to create policy request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.PolicyRecord{}, fmt.Errorf("failed to execute policy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PolicyRecord{}, apiError(resp)
	}

	var record models.PolicyRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return models.PolicyRecord{}, fmt.Errorf("failed to decode policy response: %w", err)
	}
	return record, nil
}

func (c *HttpPartnerClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request for %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

func (c *HttpPartnerClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// apiError extracts the server's message field from an error response body,
// falling back to a status-code error when there is none.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return fmt.Errorf("%s", envelope.Message)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
}
