// Package backend talks to the marketplace REST backend's auth endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client implements ports.AuthBackend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		log:        log.With().Str("component", "backend_client").Logger(),
	}
}

type envelope struct {
	Data    *domain.AuthPayload `json:"data"`
	Message string              `json:"message"`
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Logout tells the backend to drop token. The response body is ignored.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.BackendError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*domain.AuthPayload, error) {
	resp, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.BackendError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, decodeErr)
	}
	if env.Data == nil {
		return nil, errors.New("backend response has no data")
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		c.log.Warn().Err(err).Str("path", path).Msg("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
