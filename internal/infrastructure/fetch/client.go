package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// Client performs GET requests with constant headers, a timeout, a body cap
// and per-host spacing.
type Client struct {
	http           *http.Client
	userAgent      string
	acceptLanguage string
	maxBody        int64
	limiter        *HostLimiter
	logger         *slog.Logger
}

var _ ports.PageFetcher = (*Client)(nil)

// NewClient wires an HTTP client from fetch settings.
func NewClient(cfg config.FetchConfig, log *slog.Logger) *Client {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	return &Client{
		http:           &http.Client{Timeout: cfg.Timeout},
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		maxBody:        maxBody,
		limiter:        NewHostLimiter(cfg.RequestDelay),
		logger:         logger.For(log, "fetch"),
	}
}

// Fetch returns the response body of a successful GET.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.get(ctx, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetch, rawURL, err)
	}
	return body, nil
}

// Download stores a remote image under dir and returns the local path.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	resp, err := c.get(ctx, rawURL, "image/*")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.maxBody {
		return "", fmt.Errorf("%w: download %s: %d bytes exceeds limit of %d", domain.ErrFetch, rawURL, resp.ContentLength, c.maxBody)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	name := uuid.NewString() + extensionFor(resp.Header.Get("Content-Type"), rawURL)
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	// One byte past the cap tells an oversized body from one that fits exactly.
	n, err := io.Copy(f, io.LimitReader(resp.Body, c.maxBody+1))
	if err == nil && n > c.maxBody {
		err = fmt.Errorf("body exceeds limit of %d bytes", c.maxBody)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: download %s: %v", domain.ErrFetch, rawURL, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	return dst, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, rawURL, resp.Status)
	}
	return resp, nil
}

func extensionFor(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		}
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if len(ext) > 1 && len(ext) <= 5 {
		return ext
	}
	return ".img"
}
