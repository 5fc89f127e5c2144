package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// Client is a Go SDK for the assessment API
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAccessToken sets an access token obtained earlier
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new assessment API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when the server answers with an error envelope
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s (HTTP %d)", e.Code, e.Message, e.Status)
}

// Domain is a catalog domain with its short title
type Domain struct {
	models.Domain
	ShortTitle string `json:"shortTitle"`
}

// Catalog is the questionnaire served by the API
type Catalog struct {
	Domains        []Domain        `json:"domains"`
	Options        []models.Option `json:"options"`
	TotalQuestions int             `json:"totalQuestions"`
}

// AnswersState is the caller's current answers with progress
type AnswersState struct {
	Answers  models.Answers  `json:"answers"`
	Progress models.Progress `json:"progress"`
}

// AccessToken returns the token used for requests
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// SignIn exchanges an optional sign-in token for an access token, which is
// then used for every following request. An empty token signs in anonymously.
func (c *Client) SignIn(ctx context.Context, token string) (*models.SignInResponse, error) {
	var resp models.SignInResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/session", models.SignInRequest{Token: token}, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	c.mu.Unlock()

	return &resp, nil
}

// GetCatalog retrieves the questionnaire
func (c *Client) GetCatalog(ctx context.Context) (*Catalog, error) {
	var catalog Catalog
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog", nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// GetDomain retrieves one domain by ID
func (c *Client) GetDomain(ctx context.Context, id string) (*Domain, error) {
	var domain Domain
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog/domains/"+url.PathEscape(id), nil, &domain); err != nil {
		return nil, err
	}
	return &domain, nil
}

// ListOptions retrieves the option scale
func (c *Client) ListOptions(ctx context.Context) ([]models.Option, error) {
	var result struct {
		Options []models.Option `json:"options"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/options", nil, &result); err != nil {
		return nil, err
	}
	return result.Options, nil
}

// GetAnswers retrieves the current answers
func (c *Client) GetAnswers(ctx context.Context) (*AnswersState, error) {
	var state AnswersState
	if err := c.call(ctx, http.MethodGet, "/api/v1/assessment/answers", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetAnswer records one answer and returns the updated progress
func (c *Client) SetAnswer(ctx context.Context, questionID, value string) (*models.Progress, error) {
	var result struct {
		Progress models.Progress `json:"progress"`
	}
	path := "/api/v1/assessment/answers/" + url.PathEscape(questionID)
	if err := c.call(ctx, http.MethodPut, path, models.SetAnswerRequest{Value: value}, &result); err != nil {
		return nil, err
	}
	return &result.Progress, nil
}

// ResetAnswers clears all answers and the result
func (c *Client) ResetAnswers(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/assessment/answers", nil, nil)
}

// GetProgress retrieves the answered share of the questionnaire
func (c *Client) GetProgress(ctx context.Context) (*models.Progress, error) {
	var progress models.Progress
	if err := c.call(ctx, http.MethodGet, "/api/v1/assessment/progress", nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Calculate scores the current answers
func (c *Client) Calculate(ctx context.Context) (*models.CalculationResult, error) {
	var result models.CalculationResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/assessment/calculate", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetResult retrieves the last result; fails with code "result_stale"
// when answers changed since it was calculated
func (c *Client) GetResult(ctx context.Context) (*models.CalculationResult, error) {
	var result models.CalculationResult
	if err := c.call(ctx, http.MethodGet, "/api/v1/assessment/result", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Save calculates the result and persists the answers when possible
func (c *Client) Save(ctx context.Context) (*models.SaveResponse, error) {
	var resp models.SaveResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/assessment/save", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Load replaces the answers with the saved ones
func (c *Client) Load(ctx context.Context) (*models.LoadResponse, error) {
	var resp models.LoadResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/assessment/load", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call sends in as JSON and decodes the envelope data into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return &APIError{Status: status, Code: "http_error", Message: string(resp)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown_error", Message: "request failed"}
		}
		apiErr.Status = status
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
