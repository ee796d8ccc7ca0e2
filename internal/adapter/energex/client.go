package energex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/energex-outages-etl/internal/config"
)

// maxPageSize bounds how much of a response body is read.
const maxPageSize = 16 << 20

// Client fetches the Energex demand and outages pages.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	demandURL  string
	outagesURL string
	userAgent  string
	cacheDir   string
	logger     *slog.Logger
}

// NewClient creates a client for the configured source URLs. When
// cfg.FetchCacheDir is set, pages are served from and saved to that directory.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		demandURL:  cfg.DemandURL,
		outagesURL: cfg.OutagesURL,
		userAgent:  cfg.UserAgent,
		cacheDir:   cfg.FetchCacheDir,
		logger:     logger,
	}
}

// FetchDemand returns the plaintext network demand page.
func (c *Client) FetchDemand(ctx context.Context) (string, error) {
	return c.fetch(ctx, c.demandURL)
}

// FetchOutages returns the emergency outages HTML page.
func (c *Client) FetchOutages(ctx context.Context) (string, error) {
	return c.fetch(ctx, c.outagesURL)
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	if page, ok := c.loadCached(url); ok {
		c.logger.Debug("serving page from cache", "url", url)
		return page, nil
	}

	page, err := c.doRequest(ctx, url)
	if err != nil {
		return "", err
	}

	c.saveCached(url, page)
	return page, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}

// cacheKey keeps only the letters and digits of url.
func cacheKey(url string) string {
	var sb strings.Builder
	for _, r := range url {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CacheFile returns the path under dir where the page for url is cached.
func CacheFile(dir, url string) string {
	return filepath.Join(dir, cacheKey(url)+".txt")
}

func (c *Client) cachePath(url string) string {
	return CacheFile(c.cacheDir, url)
}

func (c *Client) loadCached(url string) (string, bool) {
	if c.cacheDir == "" {
		return "", false
	}
	data, err := os.ReadFile(c.cachePath(url))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("read page cache failed", "url", url, "error", err)
		}
		return "", false
	}
	return string(data), true
}

// saveCached stores page for later runs. Cache failures are logged, never
// returned: the page was fetched successfully.
func (c *Client) saveCached(url, page string) {
	if c.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		c.logger.Warn("create page cache failed", "dir", c.cacheDir, "error", err)
		return
	}
	if err := os.WriteFile(c.cachePath(url), []byte(page), 0o644); err != nil {
		c.logger.Warn("write page cache failed", "url", url, "error", err)
	}
}
