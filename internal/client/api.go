// Package client is the consumer side of the message API: a typed HTTP
// client, a query cache with invalidation, the message feed built on both,
// and the single-field form that posts to it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"message-board/internal/model"
	"message-board/internal/schema"
)

// MessagesPath is both the list/create endpoint and the list query key.
const MessagesPath = "/api/messages"

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	// Validation is set when the server answered with {message, field}.
	Validation *schema.ValidationError
	Body       string
}

func (e *APIError) Error() string {
	if e.Validation != nil {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Validation.Error())
	}
	return fmt.Sprintf("api: %d: %s", e.Status, strings.TrimSpace(e.Body))
}

type API struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *API) ListMessages(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	if err := a.do(ctx, http.MethodGet, MessagesPath, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Message{}
	}
	return out, nil
}

func (a *API) CreateMessage(ctx context.Context, in model.NewMessage) (model.Message, error) {
	var out model.Message
	if err := a.do(ctx, http.MethodPost, MessagesPath, in, http.StatusCreated, &out); err != nil {
		return model.Message{}, err
	}
	return out, nil
}

func (a *API) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		var verr schema.ValidationError
		if resp.StatusCode == http.StatusBadRequest && json.Unmarshal(raw, &verr) == nil && verr.Message != "" {
			apiErr.Validation = &verr
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
