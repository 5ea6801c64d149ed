// Package platform holds adapters for the social publishing API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// authState is the opaque blob persisted between runs.
type authState struct {
	UserID       string `json:"user_id"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// HTTPClient talks to a JSON gateway in front of the platform API.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	state  authState
	device domain.DeviceFingerprint
}

var _ ports.PlatformClient = (*HTTPClient)(nil)

// NewHTTPClient builds a client from configuration.
func NewHTTPClient(cfg config.PlatformConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetDevice fixes the identity headers sent with every request.
func (c *HTTPClient) SetDevice(device domain.DeviceFingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device = device
}

// LoadState restores a persisted session blob.
func (c *HTTPClient) LoadState(state json.RawMessage) error {
	var s authState
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("parse session state: %w", err)
	}
	if s.Token == "" && s.RefreshToken == "" {
		return fmt.Errorf("parse session state: no tokens")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	return nil
}

// DumpState serialises the current session.
func (c *HTTPClient) DumpState() (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Token == "" {
		return nil, fmt.Errorf("dump session state: %w", domain.ErrLoginRequired)
	}
	raw, err := json.Marshal(c.state)
	if err != nil {
		return nil, fmt.Errorf("dump session state: %w", err)
	}
	return raw, nil
}

// AccountInfo validates the session by asking who we are.
func (c *HTTPClient) AccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	var info domain.AccountInfo
	if err := c.do(ctx, http.MethodGet, "/account", nil, "", true, &info); err != nil {
		return domain.AccountInfo{}, fmt.Errorf("account info: %w", err)
	}
	return info, nil
}

// Relogin exchanges the refresh token for a new access token.
func (c *HTTPClient) Relogin(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.state.RefreshToken
	c.mu.Unlock()
	if refresh == "" {
		return fmt.Errorf("relogin: %w: no refresh token", domain.ErrLoginRequired)
	}
	return c.authenticate(ctx, "/relogin", map[string]string{"refresh_token": refresh})
}

// Login performs a full credential login.
func (c *HTTPClient) Login(ctx context.Context, creds domain.Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("login: %w: credentials missing", domain.ErrLoginRequired)
	}
	return c.authenticate(ctx, "/login", map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	var s authState
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", false, &s); err != nil {
		return fmt.Errorf("%s: %w", strings.TrimPrefix(path, "/"), err)
	}
	if s.Token == "" {
		return fmt.Errorf("%s: %w: empty token", strings.TrimPrefix(path, "/"), domain.ErrLoginRequired)
	}
	c.mu.Lock()
	if s.RefreshToken == "" {
		s.RefreshToken = c.state.RefreshToken
	}
	c.state = s
	c.mu.Unlock()
	return nil
}

// UploadPhoto posts the image with its caption as multipart form data.
func (c *HTTPClient) UploadPhoto(ctx context.Context, imagePath, caption string) (domain.Media, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return domain.Media{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("caption", caption); err != nil {
		return domain.Media{}, fmt.Errorf("write caption: %w", err)
	}
	part, err := form.CreateFormFile("photo", filepath.Base(imagePath))
	if err != nil {
		return domain.Media{}, fmt.Errorf("create photo part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return domain.Media{}, fmt.Errorf("copy photo: %w", err)
	}
	if err := form.Close(); err != nil {
		return domain.Media{}, fmt.Errorf("close form: %w", err)
	}

	var media domain.Media
	if err := c.do(ctx, http.MethodPost, "/media", &buf, form.FormDataContentType(), true, &media); err != nil {
		return domain.Media{}, fmt.Errorf("upload photo: %w", err)
	}
	if media.ID == "" {
		return domain.Media{}, fmt.Errorf("upload photo: empty media id")
	}
	return media, nil
}

// MediaInsights fetches engagement counters for a published media item.
func (c *HTTPClient) MediaInsights(ctx context.Context, mediaID string) (domain.Engagement, error) {
	var out domain.Engagement
	path := "/media/" + url.PathEscape(mediaID) + "/insights"
	if err := c.do(ctx, http.MethodGet, path, nil, "", true, &out); err != nil {
		return domain.Engagement{}, fmt.Errorf("media insights: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool, v any) error {
	if c.baseURL == "" {
		return fmt.Errorf("platform base url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	device, token := c.device, c.state.Token
	c.mu.Unlock()
	if device.UserAgent != "" {
		req.Header.Set("User-Agent", device.UserAgent)
	}
	if device.DeviceID != "" {
		req.Header.Set("X-Device-ID", device.DeviceID)
		req.Header.Set("X-Phone-ID", device.PhoneID)
		req.Header.Set("X-Device-UUID", device.UUID)
	}
	if auth {
		if token == "" {
			return fmt.Errorf("%w: no session", domain.ErrLoginRequired)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classify(resp.StatusCode, payload)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
