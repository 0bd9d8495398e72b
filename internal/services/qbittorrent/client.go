// Package qbittorrent talks to the qBittorrent WebUI API v2, used both as the
// release search service and as the download client.
package qbittorrent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/config"
)

const apiPrefix = "/api/v2"

// ErrLoginFailed is returned when qBittorrent rejects the configured credentials
var ErrLoginFailed = errors.New("qbittorrent login rejected")

// Client handles communication with the qBittorrent WebUI
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *logrus.Logger

	loginMu  sync.Mutex
	loggedIn bool
}

// NewClient creates a new qBittorrent client with its own cookie session
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.QBittorrentURL == "" {
		return nil, fmt.Errorf("qBittorrent URL is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.QBittorrentURL, "/"),
		username: cfg.QBittorrentUsername,
		password: cfg.QBittorrentPassword,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// Login opens a WebUI session. Transient failures are retried; rejected credentials are not.
func (c *Client) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	operation := func() error {
		form := url.Values{}
		form.Set("username", c.username)
		form.Set("password", c.password)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/auth/login", strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", c.baseURL)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("login request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(body))
		}
		if strings.TrimSpace(string(body)) != "Ok." {
			return backoff.Permanent(ErrLoginFailed)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.loggedIn = false
		return err
	}

	c.loggedIn = true
	c.logger.WithField("url", c.baseURL).Debug("Logged in to qBittorrent")
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.loginMu.Lock()
	loggedIn := c.loggedIn
	c.loginMu.Unlock()

	if loggedIn {
		return nil
	}
	return c.Login(ctx)
}

// doRequest performs an authenticated WebUI call and decodes a JSON response into result
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, result interface{}) error {
	body, err := c.call(ctx, method, path, params)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// call performs an authenticated WebUI call and returns the raw body. GET sends params
// as a query string, POST as a form body. A 403 means the session expired: log in
// again and retry once.
func (c *Client) call(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	body, status, err := c.send(ctx, method, path, params)
	if err != nil {
		return nil, err
	}

	if status == http.StatusForbidden {
		c.logger.Debug("qBittorrent session expired, logging in again")
		c.loginMu.Lock()
		c.loggedIn = false
		c.loginMu.Unlock()

		if err := c.Login(ctx); err != nil {
			return nil, fmt.Errorf("failed to log in: %w", err)
		}
		body, status, err = c.send(ctx, method, path, params)
		if err != nil {
			return nil, err
		}
	}

	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("API request failed with status %d: %s", status, string(body))
	}

	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values) ([]byte, int, error) {
	fullURL := c.baseURL + apiPrefix + path

	var reqBody io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			fullURL += "?" + params.Encode()
		}
	} else if params != nil {
		reqBody = strings.NewReader(params.Encode())
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Trace("Making qBittorrent API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
