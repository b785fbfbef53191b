// Package remote talks to a vibeflow server over its HTTP API. A Client is a
// library.Store, a suggest.Service and a player.Resolver for the logged-in
// account.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/llehouerou/vibeflow/internal/account"
	"github.com/llehouerou/vibeflow/internal/errmsg"
)

// SessionCookie must match the server's cookie name.
const SessionCookie = "vibeflow_session"

// Client provides access to the vibeflow API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cacheDir   string
	logger     *log.Logger
	downloads  singleflight.Group
}

// NewClient creates a client for the server at baseURL. Audio fetched by
// Resolve is cached under cacheDir.
func NewClient(baseURL, cacheDir string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: %w", baseURL, errmsg.ErrValidation)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		cacheDir:   cacheDir,
		logger:     logger,
	}, nil
}

// Signup creates an account and logs in as it.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (account.Account, error) {
	return c.authenticate(ctx, "/api/auth/signup", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	})
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (account.Account, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (account.Account, error) {
	var resp struct {
		User *account.Account `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return account.Account{}, err
	}
	if resp.User == nil {
		return account.Account{}, fmt.Errorf("empty user in response: %w", errmsg.ErrNotAuthenticated)
	}
	return *resp.User, nil
}

// Me returns the logged-in account, or nil when the session is missing or expired.
func (c *Client) Me(ctx context.Context) (*account.Account, error) {
	var resp struct {
		User *account.Account `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Session returns the current session token, or "" when logged out.
func (c *Client) Session() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// SetSession restores a token saved from a previous Session call.
func (c *Client) SetSession(token string) {
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  SessionCookie,
		Value: token,
		Path:  "/",
	}})
}

// SaveSession writes the session token to path so later runs can reuse it.
func (c *Client) SaveSession(path string) error {
	token := c.Session()
	if token == "" {
		return fmt.Errorf("no session: %w", errmsg.ErrNotAuthenticated)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

// LoadSession restores a token written by SaveSession. A missing file is not an error.
func (c *Client) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if token := strings.TrimSpace(string(data)); token != "" {
		c.SetSession(token)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// doJSON sends in as JSON and decodes the response into out. Either may be nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := newJSONRequest(ctx, method, c.url(path), in)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func newJSONRequest(ctx context.Context, method, target string, in any) (*http.Request, error) {
	body := io.Reader(http.NoBody)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	return c.doWith(c.httpClient, req, out)
}

// untimed returns a copy of the HTTP client without the overall timeout, for
// uploads and downloads that are bounded by their context instead.
func (c *Client) untimed() *http.Client {
	hc := *c.httpClient
	hc.Timeout = 0
	return &hc
}

func (c *Client) doWith(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, errmsg.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError turns a non-200 response into an error of the matching kind,
// carrying the server's message.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = errmsg.ErrNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		kind = errmsg.ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		kind = errmsg.ErrExternalAuthRequired
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = errmsg.ErrValidation
	default:
		kind = errmsg.ErrRemoteUnavailable
	}
	return &StatusError{Code: resp.StatusCode, Message: msg, kind: kind}
}

// StatusError is a non-200 API response.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.kind
}
