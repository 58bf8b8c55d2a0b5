// Package grafana provides the client for the Grafana annotation API.
package grafana

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/ocsp"
)

const (
	// DefaultTimeout is the default timeout for annotation API requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (1MB); annotation
	// responses are tiny, anything larger indicates a misconfigured endpoint
	MaxResponseSize = 1 * 1024 * 1024

	annotationsPath = "/api/annotations"
)

// Client is the interface for annotation API operations
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	// CreateAnnotation creates a region annotation starting at startMillis
	// (epoch milliseconds) and returns the id assigned by the API
	CreateAnnotation(ctx context.Context, text string, tags []string, startMillis int64) (int64, error)

	// UpdateAnnotationEnd patches the annotation's end timestamp; no other
	// fields are sent
	UpdateAnnotationEnd(ctx context.Context, annotationID int64, endMillis int64) error
}

// ClientOption configures the HTTP client
type ClientOption func(*HTTPClient)

// WithDashboard scopes created annotations to a dashboard and panel
func WithDashboard(dashboardID, panelID *int64) ClientOption {
	return func(c *HTTPClient) {
		c.dashboardID = dashboardID
		c.panelID = panelID
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// HTTPClient is the default annotation API client implementation
type HTTPClient struct {
	baseURL     string
	token       string
	dashboardID *int64
	panelID     *int64
	timeout     time.Duration
}

// NewClient creates an annotation API client for the given base URL and
// bearer token
func NewClient(baseURL, token string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		token:   token,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateAnnotation issues the create request and returns the assigned id
func (c *HTTPClient) CreateAnnotation(ctx context.Context, text string, tags []string, startMillis int64) (int64, error) {
	payload := AnnotationRequest{
		DashboardID: c.dashboardID,
		PanelID:     c.panelID,
		Time:        startMillis,
		Tags:        tags,
		Text:        text,
	}

	body, err := c.send(ctx, http.MethodPost, c.baseURL+annotationsPath, payload)
	if err != nil {
		return 0, err
	}

	var resp AnnotationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode annotation response: %w", err)
	}
	return resp.ID, nil
}

// UpdateAnnotationEnd issues the partial-update request carrying only timeEnd
func (c *HTTPClient) UpdateAnnotationEnd(ctx context.Context, annotationID int64, endMillis int64) error {
	url := fmt.Sprintf("%s%s/%d", c.baseURL, annotationsPath, annotationID)
	_, err := c.send(ctx, http.MethodPatch, url, AnnotationPatch{TimeEnd: endMillis})
	return err
}

// send issues one request over a fresh transport. Keep-alives are disabled
// and idle connections are closed on every exit path, so a retried attempt
// never inherits a broken or stale channel.
func (c *HTTPClient) send(ctx context.Context, method, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	transport := newTransport()
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewAPIError(resp.StatusCode, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// newTransport builds the per-attempt transport. Certificate revocation
// checking must fail closed: a stapled OCSP response reporting a revoked
// server certificate aborts the handshake.
func newTransport() *http.Transport {
	return &http.Transport{
		DisableKeepAlives: true,
		TLSClientConfig: &tls.Config{
			MinVersion:       tls.VersionTLS12,
			VerifyConnection: verifyNotRevoked,
		},
	}
}

// verifyNotRevoked validates the stapled OCSP response, if the server sent
// one, against the verified chain. It runs after standard chain verification.
func verifyNotRevoked(cs tls.ConnectionState) error {
	if len(cs.OCSPResponse) == 0 {
		return nil
	}
	if len(cs.VerifiedChains) == 0 || len(cs.VerifiedChains[0]) < 2 {
		return nil
	}
	chain := cs.VerifiedChains[0]

	resp, err := ocsp.ParseResponseForCert(cs.OCSPResponse, chain[0], chain[1])
	if err != nil {
		return fmt.Errorf("failed to parse stapled OCSP response: %w", err)
	}
	if resp.Status == ocsp.Revoked {
		return fmt.Errorf("server certificate was revoked at %s", resp.RevokedAt)
	}
	return nil
}
