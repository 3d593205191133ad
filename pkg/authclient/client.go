// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

// Package authclient is the client-side counterpart of the authentication
// API: an HTTP client with a cookie jar and an explicitly scoped cache of
// the current user. The cache is mutated only through Login, Logout, and
// Refresh; callers read it via CurrentUser.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// defaultTimeout bounds each API call.
const defaultTimeout = 10 * time.Second

// User is the client-side view of the authenticated user. The ID is
// opaque to clients.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// APIError describes a failed API call with enough detail for diagnostics:
// method, URL, HTTP status, and any server-supplied message. It is meant
// for developers, not end-user display.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, msg)
}

// Client talks to the authentication API and caches the current user.
// Session continuity across calls is carried by the cookie jar; the cache
// itself does not outlive the Client.
type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.RWMutex
	user *User
}

// New creates a Client for the API at baseURL (e.g. "http://127.0.0.1:8080").
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, oops.Errorf("base URL is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, oops.Code("CLIENT_INIT_FAILED").
			With("operation", "create cookie jar").
			Wrap(err)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}, nil
}

// CurrentUser returns the cached user, or nil when not logged in.
func (c *Client) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	copied := *c.user
	return &copied
}

// Refresh fetches the current user from the server and updates the cache.
// A 401 means "not logged in": the cache is cleared and no error is
// returned, so callers never treat an anonymous state as a failure.
func (c *Client) Refresh(ctx context.Context) error {
	var body struct {
		User User `json:"user"`
	}

	err := c.call(ctx, http.MethodGet, "/auth/me", nil, &body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.setUser(nil)
			return nil
		}
		return err
	}

	c.setUser(&body.User)
	return nil
}

// Login authenticates and replaces the cached user on success.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	var body struct {
		User User `json:"user"`
	}

	if err := c.call(ctx, http.MethodPost, "/auth/login", payload, &body); err != nil {
		return err
	}

	c.setUser(&body.User)
	return nil
}

// Logout destroys the server session and clears the cached user. The local
// clear is unconditional: even if the network call fails, the client
// forgets the user and the server session is left to expire on its own.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.setUser(nil)
	return err
}

// setUser replaces the cached user.
func (c *Client) setUser(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// call performs one JSON API request. Non-2xx responses become *APIError
// with the server's message when the body carries one.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return oops.Code("CLIENT_ENCODE_FAILED").Wrap(err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return oops.Code("CLIENT_REQUEST_FAILED").
			With("method", method).
			With("url", url).
			Wrap(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return oops.Code("CLIENT_REQUEST_FAILED").
			With("method", method).
			With("url", url).
			Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return oops.Code("CLIENT_API_ERROR").Wrap(&APIError{
			Method:  method,
			URL:     url,
			Status:  resp.StatusCode,
			Message: serverMessage(resp.Body),
		})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return oops.Code("CLIENT_DECODE_FAILED").
				With("method", method).
				With("url", url).
				Wrap(err)
		}
	}
	return nil
}

// serverMessage extracts the message from an error envelope, tolerating
// non-JSON bodies.
func serverMessage(r io.Reader) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}
