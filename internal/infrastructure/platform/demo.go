package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Demo simulates the platform: logins always work and uploads return
// synthetic ids. Used for dry runs and when no gateway is configured.
type Demo struct {
	mu      sync.Mutex
	account  string
	username string
	authed   bool
	device  domain.DeviceFingerprint
	uploads int
	now     func() time.Time
}

var _ ports.PlatformClient = (*Demo)(nil)

// NewDemo returns a simulated client for account.
func NewDemo(account string) *Demo {
	if account == "" {
		account = "demo_news_account"
	}
	return &Demo{account: account, now: time.Now}
}

type demoState struct {
	Demo     bool   `json:"demo"`
	Account  string `json:"account"`
	Username string `json:"username,omitempty"`
}

func (d *Demo) SetDevice(device domain.DeviceFingerprint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device = device
}

func (d *Demo) LoadState(state json.RawMessage) error {
	var s demoState
	if err := json.Unmarshal(state, &s); err != nil || !s.Demo {
		return fmt.Errorf("parse demo state: not a demo session")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authed = true
	d.username = s.Username
	return nil
}

func (d *Demo) DumpState() (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.authed {
		return nil, fmt.Errorf("dump demo state: %w", domain.ErrLoginRequired)
	}
	return json.Marshal(demoState{Demo: true, Account: d.account, Username: d.username})
}

func (d *Demo) AccountInfo(context.Context) (domain.AccountInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.authed {
		return domain.AccountInfo{}, fmt.Errorf("demo account: %w", domain.ErrLoginRequired)
	}
	username := d.username
	if username == "" {
		username = d.account
	}
	return domain.AccountInfo{UserID: "demo", Username: username, Followers: 1234}, nil
}

func (d *Demo) Relogin(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.authed {
		return fmt.Errorf("demo relogin: %w", domain.ErrLoginRequired)
	}
	return nil
}

func (d *Demo) Login(_ context.Context, creds domain.Credentials) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authed = true
	d.username = creds.Username
	return nil
}

// UploadPhoto checks the file exists and returns a synthetic media record.
func (d *Demo) UploadPhoto(_ context.Context, imagePath, _ string) (domain.Media, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return domain.Media{}, fmt.Errorf("demo upload: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.authed {
		return domain.Media{}, fmt.Errorf("demo upload: %w", domain.ErrLoginRequired)
	}
	d.uploads++
	id := fmt.Sprintf("DEMO_%d_%d", d.uploads, d.now().Unix())
	return domain.Media{ID: id, Code: id, URL: "https://instagram.com/p/" + id + "/"}, nil
}

// MediaInsights returns stable pseudo metrics derived from the id.
func (d *Demo) MediaInsights(_ context.Context, mediaID string) (domain.Engagement, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(mediaID))
	seed := int64(h.Sum32() % 1000)
	return domain.Engagement{
		Likes:       seed,
		Comments:    seed / 10,
		Views:       seed * 12,
		Shares:      seed / 20,
		Saves:       seed / 15,
		Reach:       seed * 8,
		Impressions: seed * 11,
	}, nil
}
