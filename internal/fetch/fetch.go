// Package fetch provides the retrying HTTP client used for listing pages,
// sitemaps, and thumbnail downloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"vidshelf/internal/config"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
)

// Fetcher is the page-retrieval capability the crawler consumes. Tests
// substitute an in-memory implementation.
type Fetcher interface {
	// FetchPage returns the response body for url. Transient failures are
	// retried internally; the returned error is terminal for this url.
	FetchPage(ctx context.Context, url string) (string, error)
}

// Downloader streams a remote asset to a local path.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Client implements Fetcher and Downloader over net/http with exponential
// backoff on transient failures.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	cookie       string
	maxTries     uint
	initialDelay time.Duration
	logger       *slog.Logger
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying transport, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a Client from crawl configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Crawl.RequestTimeout) * time.Second,
		},
		userAgent:    cfg.Site.UserAgent,
		cookie:       cfg.Site.SessionCookie,
		maxTries:     uint(cfg.Crawl.RetryAttempts) + 1,
		initialDelay: time.Duration(cfg.Crawl.RetryBackoffMS) * time.Millisecond,
		logger:       logger.With(logging.String(logging.FieldComponent, "fetch")),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchPage retrieves url, retrying transient failures (network errors, 429,
// 5xx) with exponential backoff. A 404 maps to services.ErrNotFound without
// retrying.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		body, status, err := c.get(ctx, url)
		if err != nil {
			c.logger.Debug("page fetch failed",
				logging.String(logging.FieldURL, url),
				logging.Int("attempt", attempt),
				logging.Error(err))
			return "", services.Wrap(services.ErrTransient, "fetch", "get page", url, err)
		}
		switch {
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusNotFound || status == http.StatusGone:
			return "", backoff.Permanent(services.Wrap(services.ErrNotFound, "fetch", "get page", fmt.Sprintf("%s returned %d", url, status), nil))
		case status == http.StatusTooManyRequests || status >= 500:
			c.logger.Debug("page fetch retryable status",
				logging.String(logging.FieldURL, url),
				logging.Int("status", status),
				logging.Int("attempt", attempt))
			return "", services.Wrap(services.ErrTransient, "fetch", "get page", fmt.Sprintf("%s returned %d", url, status), nil)
		default:
			return "", backoff.Permanent(services.Wrap(services.ErrValidation, "fetch", "get page", fmt.Sprintf("%s returned %d", url, status), nil))
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialDelay

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return "", err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}

// Download streams url to destPath via a temp file in the same directory so
// an interrupted transfer never leaves a partial file at the final name.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	operation := func() (struct{}, error) {
		err := c.downloadOnce(ctx, url, destPath)
		if err == nil {
			return struct{}{}, nil
		}
		if strings.Contains(err.Error(), "status 404") {
			return struct{}{}, backoff.Permanent(services.Wrap(services.ErrNotFound, "fetch", "download", url, err))
		}
		return struct{}{}, services.Wrap(services.ErrTransient, "fetch", "download", url, err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialDelay

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.maxTries))
	return err
}

func (c *Client) downloadOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, destPath)
}
