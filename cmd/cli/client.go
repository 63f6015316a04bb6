package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s, status %d): %s", e.Err, e.Code, e.Status, e.Message)
}

// retryable reports whether resubmitting the same request may succeed.
func (e *apiError) retryable() bool {
	return e.Code == "lock_timeout" || e.Code == "storage_failure"
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do sends one request and returns the raw response body of a 2xx reply.
func (c *apiClient) do(ctx context.Context, method, path string, body any, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Err == "" {
			apiErr.Message = string(bytes.TrimSpace(respBody))
		}
		return nil, apiErr
	}

	return respBody, nil
}

// doWithRetry retries lock timeouts, storage failures and transport errors
// with exponential backoff. Headers are resent unchanged, so an
// Idempotency-Key keeps retries from applying twice.
func (c *apiClient) doWithRetry(ctx context.Context, method, path string, body any, headers map[string]string, maxRetries uint64, b *backoff.ExponentialBackOff) ([]byte, error) {
	var result []byte
	operation := func() error {
		respBody, err := c.do(ctx, method, path, body, headers)
		if err == nil {
			result = respBody
			return nil
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}
