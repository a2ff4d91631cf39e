// Package backend is the HTTP client for the access-control backend REST API.
// All entity data the console shows comes through this client; the console
// itself stores none of it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// Client wraps interactions with the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. baseURL is the backend root, without the
// /api/v1 prefix.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// listEnvelope is the backend's paginated list response shape.
type listEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Count  int             `json:"count"`
}

// mutationEnvelope is the backend's response shape for writes.
type mutationEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// List fetches a paginated collection. rawQuery is the canonical query string
// produced by the caller's key builder and is sent verbatim.
func List[T any](ctx context.Context, c *Client, path, rawQuery string) ([]T, int, error) {
	body, err := c.get(ctx, apiPrefix+path, rawQuery)
	if err != nil {
		return nil, 0, err
	}
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("backend: decode list %s: %w", path, err)
	}
	var items []T
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &items); err != nil {
			return nil, 0, fmt.Errorf("backend: decode list rows %s: %w", path, err)
		}
	}
	return items, envelope.Count, nil
}

// Get fetches a single entity into dest.
func Get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T
	body, err := c.get(ctx, apiPrefix+path, "")
	if err != nil {
		return zero, err
	}
	var envelope mutationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, fmt.Errorf("backend: decode %s: %w", path, err)
	}
	var item T
	if err := json.Unmarshal(envelope.Data, &item); err != nil {
		return zero, fmt.Errorf("backend: decode entity %s: %w", path, err)
	}
	return item, nil
}

// Count fetches a counter endpoint, shaped {"count": n}.
func (c *Client) Count(ctx context.Context, path string) (int, error) {
	body, err := c.get(ctx, apiPrefix+path, "")
	if err != nil {
		return 0, err
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("backend: decode count %s: %w", path, err)
	}
	return payload.Count, nil
}

// ServerTime reads the backend clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	body, err := c.get(ctx, apiPrefix+"/time", "")
	if err != nil {
		return time.Time{}, err
	}
	var payload struct {
		Time time.Time `json:"time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return time.Time{}, fmt.Errorf("backend: decode time: %w", err)
	}
	return payload.Time, nil
}

// Ping checks whether the backend is reachable at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.get(ctx, apiPrefix+"/time", "")
	return err
}

// Image fetches a binary face-capture image by filename. Returns the bytes and
// the Content-Type reported by the backend.
func (c *Client) Image(ctx context.Context, filename string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPrefix+"/access-log/image/"+url.PathEscape(filename), "", nil, "")
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := c.checkStatus(resp); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("backend: read image %s: %w", filename, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// LoginResult is the backend's successful login payload.
type LoginResult struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	User        struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// Login exchanges operator credentials for a bearer token. The login endpoint
// lives at the backend root, outside the /api/v1 prefix.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result LoginResult
	if err := c.writeJSON(ctx, http.MethodPost, "/login", payload, &result); err != nil {
		return LoginResult{}, err
	}
	if result.Status != "success" || result.AccessToken == "" {
		return LoginResult{}, ErrInvalidLogin
	}
	return result, nil
}

// PostJSON issues a POST under /api/v1 and decodes the mutation envelope.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (string, error) {
	return c.mutate(ctx, http.MethodPost, path, payload)
}

// PatchJSON issues a PATCH under /api/v1 and decodes the mutation envelope.
func (c *Client) PatchJSON(ctx context.Context, path string, payload any) (string, error) {
	return c.mutate(ctx, http.MethodPatch, path, payload)
}

// Delete issues a DELETE under /api/v1 and decodes the mutation envelope.
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, path, nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, payload any) (string, error) {
	var envelope mutationEnvelope
	if err := c.writeJSON(ctx, method, apiPrefix+path, payload, &envelope); err != nil {
		return "", err
	}
	if envelope.Status != "" && envelope.Status != "success" {
		return envelope.Message, fmt.Errorf("backend: %s %s: %s", method, path, nonEmpty(envelope.Message, "request rejected"))
	}
	return envelope.Message, nil
}

func (c *Client) writeJSON(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, method, path, "", body, "application/json")
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, rawQuery string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, rawQuery, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path, rawQuery string, body io.Reader, contentType string) (*http.Response, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request %s: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	default:
		return &StatusError{Code: resp.StatusCode}
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
