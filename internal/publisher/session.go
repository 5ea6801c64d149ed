package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsRelay/internal/domain"
)

// outcome is what one acquisition stage reports back to the chain.
type outcome int

const (
	// softFail means try the next stage.
	softFail outcome = iota
	success
	// hardFail stops the chain; later stages would make things worse.
	hardFail
)

func (o outcome) String() string {
	switch o {
	case success:
		return "success"
	case hardFail:
		return "hard-fail"
	default:
		return "soft-fail"
	}
}

type stage struct {
	name string
	run  func(ctx context.Context) (outcome, error)
}

func (p *Publisher) stages() []stage {
	return []stage{
		{name: "cached", run: p.tryCached},
		{name: "persisted", run: p.tryPersisted},
		{name: "relogin", run: p.tryRelogin},
		{name: "login", run: p.tryLogin},
	}
}

// Connect makes sure a validated session is loaded, walking the stages in
// order until one succeeds.
func (p *Publisher) Connect(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	var lastErr error
	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.client.SetDevice(p.device)
		result, err := st.run(ctx)
		p.log.Debug("session stage", "stage", st.name, "outcome", result.String(), "error", err)

		switch result {
		case success:
			p.connected = true
			p.metrics.SetSessionValid(true)
			if err := p.persist(ctx); err != nil {
				p.log.Warn("persist session", "error", err)
			}
			p.log.Info("session ready", "stage", st.name, "account", p.opts.Account)
			return nil
		case hardFail:
			p.disconnect()
			p.onAuthFailure(ctx, err)
			return err
		}
		if err != nil {
			lastErr = err
		}
	}
	p.disconnect()
	if lastErr == nil {
		lastErr = domain.ErrLoginRequired
	}
	return fmt.Errorf("connect %s: %w", p.opts.Account, lastErr)
}

func (p *Publisher) tryCached(ctx context.Context) (outcome, error) {
	if !p.connected {
		return softFail, nil
	}
	return p.validate(ctx)
}

func (p *Publisher) tryPersisted(ctx context.Context) (outcome, error) {
	stored, err := p.sessions.Load(ctx, p.opts.Account)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return softFail, nil
		}
		return softFail, fmt.Errorf("load session: %w", err)
	}
	if stored.Expired(p.opts.Now()) {
		p.log.Info("stored session expired, discarding", "last_validated_at", stored.LastValidatedAt)
		p.discard(ctx)
		return softFail, nil
	}
	if err := p.client.LoadState(stored.State); err != nil {
		p.log.Warn("stored session unreadable, discarding", "error", err)
		p.discard(ctx)
		return softFail, nil
	}
	p.session = stored
	result, err := p.validate(ctx)
	if result == softFail {
		// The client keeps the loaded state so relogin can still refresh it.
		p.log.Info("stored session rejected, discarding", "error", err)
		p.deleteStored(ctx)
	}
	return result, err
}

func (p *Publisher) tryRelogin(ctx context.Context) (outcome, error) {
	if len(p.session.State) == 0 {
		return softFail, nil
	}
	if err := p.client.Relogin(ctx); err != nil {
		if errors.Is(err, domain.ErrAuthChallenge) {
			return hardFail, err
		}
		return softFail, err
	}
	return p.validate(ctx)
}

func (p *Publisher) tryLogin(ctx context.Context) (outcome, error) {
	creds := p.opts.Credentials
	if creds.Username == "" || creds.Password == "" {
		return hardFail, fmt.Errorf("login: %w: credentials are not configured", domain.ErrLoginRequired)
	}
	if err := p.client.Login(ctx, creds); err != nil {
		return hardFail, err
	}
	p.session = domain.Session{}
	return p.validate(ctx)
}

// validate confirms the loaded session with an identity call.
func (p *Publisher) validate(ctx context.Context) (outcome, error) {
	info, err := p.client.AccountInfo(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthChallenge) {
			return hardFail, err
		}
		return softFail, err
	}
	if want := p.opts.Credentials.Username; want != "" && !strings.EqualFold(info.Username, want) {
		return softFail, fmt.Errorf("session belongs to %q, not %q: %w", info.Username, want, domain.ErrLoginRequired)
	}
	p.info = info
	return success, nil
}

func (p *Publisher) persist(ctx context.Context) error {
	state, err := p.client.DumpState()
	if err != nil {
		return err
	}
	now := p.opts.Now().UTC()
	session := p.session
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.Account = p.opts.Account
	session.State = state
	session.Device = p.device
	session.LastValidatedAt = now
	if err := p.sessions.Save(ctx, session); err != nil {
		return err
	}
	p.session = session
	return nil
}

func (p *Publisher) discard(ctx context.Context) {
	p.deleteStored(ctx)
	p.session = domain.Session{}
}

func (p *Publisher) deleteStored(ctx context.Context) {
	if err := p.sessions.Delete(ctx, p.opts.Account); err != nil {
		p.log.Warn("discard session", "error", err)
	}
}

func (p *Publisher) disconnect() {
	p.connected = false
	p.metrics.SetSessionValid(false)
}

// onAuthFailure tells the operator what to do when automation is blocked.
func (p *Publisher) onAuthFailure(ctx context.Context, err error) {
	if !errors.Is(err, domain.ErrAuthChallenge) {
		p.log.Error("login failed", "account", p.opts.Account, "error", err)
		return
	}
	guidance := challengeGuidance(p.opts.Account, err)
	p.log.Warn(guidance)
	if p.notifier == nil {
		return
	}
	if nerr := p.notifier.Notify(ctx, guidance); nerr != nil {
		p.log.Warn("notify operator", "error", nerr)
	}
}

func challengeGuidance(account string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform security challenge for account %q: %v\n", account, err)
	b.WriteString("Publishing is blocked until the challenge is cleared:\n")
	b.WriteString("  1. Open the official app and sign in manually.\n")
	b.WriteString("  2. Complete any verification or security prompt.\n")
	b.WriteString("  3. Wait a few hours before retrying.\n")
	b.WriteString("  4. Run `newsrelay connect` to re-establish the session.")
	return b.String()
}

// deviceFor derives a stable fingerprint so the platform sees the same
// device for an account across restarts.
func deviceFor(account string) domain.DeviceFingerprint {
	id := func(kind string) uuid.UUID {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte("newsrelay/"+kind+"/"+account))
	}
	device := id("device")
	return domain.DeviceFingerprint{
		DeviceID:      "android-" + strings.ReplaceAll(device.String(), "-", "")[:16],
		PhoneID:       id("phone").String(),
		UUID:          device.String(),
		AdvertisingID: id("adid").String(),
		Model:         "SM-G991W",
		UserAgent:     "NewsRelay/1.0 Android (30/11; 420dpi; 1080x2340; samsung; SM-G991W; en_CA)",
	}
}

// AuthStatus describes the stored session without touching the network.
type AuthStatus struct {
	Account         string                   `json:"account"`
	Connected       bool                     `json:"connected"`
	HasSession      bool                     `json:"has_session"`
	Expired         bool                     `json:"expired"`
	CreatedAt       time.Time                `json:"created_at,omitempty"`
	LastValidatedAt time.Time                `json:"last_validated_at,omitempty"`
	Age             string                   `json:"age,omitempty"`
	Device          domain.DeviceFingerprint `json:"device"`
}

// AuthStatus reports the state of the persisted session.
func (p *Publisher) AuthStatus(ctx context.Context) (AuthStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := AuthStatus{Account: p.opts.Account, Connected: p.connected, Device: p.device}
	stored, err := p.sessions.Load(ctx, p.opts.Account)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return status, nil
		}
		return status, err
	}
	now := p.opts.Now()
	status.HasSession = true
	status.Expired = stored.Expired(now)
	status.CreatedAt = stored.CreatedAt
	status.LastValidatedAt = stored.LastValidatedAt
	if !stored.LastValidatedAt.IsZero() {
		status.Age = now.Sub(stored.LastValidatedAt).Round(time.Minute).String()
	}
	return status, nil
}

// Logout forgets the session locally and in the store.
func (p *Publisher) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnect()
	p.session = domain.Session{}
	if err := p.sessions.Delete(ctx, p.opts.Account); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
