package todo

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

// Client talks to the todos resource of a running API server and satisfies
// Backend, so a Controller can drive a remote list.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("todos api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("todos api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Read(ctx context.Context) ([]Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/todos", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var doc Document
	if err := c.do(req, &doc); err != nil {
		return nil, err
	}
	if doc.Todos == nil {
		doc.Todos = []Task{}
	}
	return doc.Todos, nil
}

func (c *Client) Replace(ctx context.Context, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	body, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/todos", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Success bool `json:"success"`
	}
	if err := c.do(req, &result); err != nil {
		return err
	}
	if !result.Success {
		return &APIError{Status: http.StatusOK, Message: "server did not confirm the save"}
	}
	return nil
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var payload struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
