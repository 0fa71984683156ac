package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"go-policy-wizard/metrics"
	"go-policy-wizard/models"
	"go-policy-wizard/wizard"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8081"

func startTestServer(t *testing.T, storage SessionStorage, partner wizard.PartnerAPI, lookup wizard.IdentityLookup, verifier *TokenVerifier) *Server {
	t.Helper()

	testState := &ServerState{
		registry:      NewSessionRegistry(storage),
		partnerAPI:    partner,
		lookupService: lookup,
		verifier:      verifier,
		metrics:       metrics.New(),
	}

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any, opts ...reqOpt) (*http.Response, []byte, *T) {
	t.Helper()
	return doJSON[T](t, http.MethodPost, url, payload, opts...)
}

func getJSON[T any](t *testing.T, url string, opts ...reqOpt) (*http.Response, []byte, *T) {
	t.Helper()
	return doJSON[T](t, http.MethodGet, url, nil, opts...)
}

func doJSON[T any](t *testing.T, method, url string, payload any, opts ...reqOpt) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var decoded *T
	var v T
	_ = json.Unmarshal(respBody, &v)
	decoded = &v

	return resp, respBody, decoded
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// Request builders
type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// session bootstrap
func startSession(t *testing.T, opts ...reqOpt) string {
	t.Helper()
	resp, body, created := postJSON[CreateSessionResponse](t, testBaseURL+"/api/session", nil, opts...)
	mustStatus(t, resp, http.StatusOK, body)
	require.NotEmpty(t, created.SessionId)
	return created.SessionId
}

func sessionURL(sessionId, suffix string) string {
	return testBaseURL + "/api/session/" + sessionId + suffix
}

// test doubles

// scriptedPartnerAPI serves canned partner responses over the wire.
type scriptedPartnerAPI struct {
	quotes    []models.PartnerResponse
	quotesErr error
	draft     models.PolicyRecord
	draftErr  error
	issued    models.IssueResponse
	issuedErr error
	policy    models.PolicyRecord
	policyErr error
}

func (f *scriptedPartnerAPI) SearchQuotes(_ context.Context, _ models.QuoteRequest) ([]models.PartnerResponse, error) {
	return f.quotes, f.quotesErr
}

func (f *scriptedPartnerAPI) CreateDraft(_ context.Context, _ models.DraftRequest) (models.PolicyRecord, error) {
	return f.draft, f.draftErr
}

func (f *scriptedPartnerAPI) IssuePolicy(_ context.Context, _ models.IssueByIdRequest) (models.IssueResponse, error) {
	return f.issued, f.issuedErr
}

func (f *scriptedPartnerAPI) GetPolicy(_ context.Context, _ int) (models.PolicyRecord, error) {
	return f.policy, f.policyErr
}

type scriptedLookup struct {
	response models.LookupResponse
	err      error
}

func (f *scriptedLookup) LookupPassport(_ context.Context, _ models.LookupRequest) (models.LookupResponse, error) {
	return f.response, f.err
}
