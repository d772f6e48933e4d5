package rda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/coecms/cmorph-mirror/internal/logctx"
)

const maxErrorBody = 64 * 1024

// Client talks to the RDA archive. Authentication is a form login that sets
// session cookies; every later GET rides on the same jar.
type Client struct {
	LoginURL   string
	BaseURL    string
	httpClient *http.Client
}

func NewClient(loginURL, baseURL string) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		LoginURL: loginURL,
		BaseURL:  baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Minute,
		},
	}
}

// Authenticate submits the login form and keeps the session cookies in the
// jar. Anything but a 200 is an AuthError carrying the response body, so the
// caller can log what the server said before giving up.
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	logger := logctx.LoggerFromContext(ctx).With("login_url", c.LoginURL)

	values := url.Values{
		"email":  {email},
		"passwd": {password},
		"action": {"login"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.LoginURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("login request failed", "err", err)

		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Error("bad authentication", "status", resp.StatusCode, "body", string(body))

		return &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	logger.Debug("authenticated", "user", email)

	return nil
}

// FetchFile opens a streaming GET for the given URL using the current
// session. The caller owns the response body. Transport errors are returned
// as-is; there is no retry at this level.
func (c *Client) FetchFile(ctx context.Context, fileURL string) (*http.Response, error) {
	logger := logctx.LoggerFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("failed to fetch file", "url", fileURL, "err", err)

		return nil, fmt.Errorf("failed to fetch %s: %w", fileURL, err)
	}

	return resp, nil
}
