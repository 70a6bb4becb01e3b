package demandclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"water_service/internal/domain/model"
)

// HTTPClient calls a running water service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *StatusError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unexpected status code %d: %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// Calculate posts in to /calculate and returns the projection.
func (c *HTTPClient) Calculate(ctx context.Context, in model.InputParameters) (model.ProjectionResult, error) {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return model.ProjectionResult{}, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(jsonBody))
	if err != nil {
		return model.ProjectionResult{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.ProjectionResult{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ProjectionResult{}, decodeStatusError(resp)
	}

	var result model.ProjectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.ProjectionResult{}, fmt.Errorf("error decoding response: %w", err)
	}
	return result, nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		statusErr.Message = payload.Error
		statusErr.Field = payload.Field
	} else {
		statusErr.Message = strings.TrimSpace(string(body))
	}
	return statusErr
}
