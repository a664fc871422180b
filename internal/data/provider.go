package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// QuoteProviderClient fetches the quotes submitted against a placement from a
// remote quoting service.
type QuoteProviderClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Log     *zap.SugaredLogger
}

// NewQuoteProviderClient creates a client with a 30s HTTP timeout.
// If baseURL is empty, defaults to "http://localhost:8090".
func NewQuoteProviderClient(apiKey, baseURL string, log *zap.SugaredLogger) *QuoteProviderClient {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &QuoteProviderClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
		Log:     log,
	}
}

// ProviderError represents an error from the quote provider.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// FetchSubmission returns the layers and quotes of one submission.
func (c *QuoteProviderClient) FetchSubmission(ctx context.Context, submissionID string) (*CatalogFile, error) {
	if err := c.validateAPIKey(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(submissionID) == "" {
		return nil, fmt.Errorf("submission_id is required")
	}

	u, err := url.Parse(c.BaseURL + "/v1/submissions/" + url.PathEscape(submissionID) + "/quotes")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.Log.Warnw("quote provider request failed", "submission", submissionID, "error", err, "elapsed", elapsed)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.Log.Debugw("quote provider response", "submission", submissionID, "status", resp.StatusCode, "elapsed", elapsed)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "INVALID_API_KEY",
			Message:    "Invalid API key or insufficient permissions",
		}
	case http.StatusNotFound:
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "SUBMISSION_NOT_FOUND",
			Message:    fmt.Sprintf("submission %q not found", submissionID),
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	cf, err := DecodeCatalog(resp.Body)
	if err != nil {
		return nil, err
	}
	if cf.SubmissionID == "" {
		cf.SubmissionID = submissionID
	}
	c.Log.Infow("fetched submission", "submission", submissionID, "quotes", len(cf.Quotes), "layers", len(cf.Layers))
	return cf, nil
}

func (c *QuoteProviderClient) validateAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ProviderError{Code: "MISSING_API_KEY", Message: "API key is required"}
	}
	return nil
}
