// Package sessionstore persists authenticated platform sessions.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// File keeps one JSON document per account in a directory.
type File struct {
	dir string
}

var _ ports.SessionStore = (*File)(nil)

// NewFile returns a store rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) path(account string) string {
	return filepath.Join(f.dir, unsafeName.ReplaceAllString(account, "_")+".session.json")
}

// Load reads the session for account; a missing file is ErrNotFound.
func (f *File) Load(_ context.Context, account string) (domain.Session, error) {
	raw, err := os.ReadFile(f.path(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, fmt.Errorf("session %s: %w", account, domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}
	return decode(raw)
}

// Save writes the session atomically.
func (f *File) Save(_ context.Context, session domain.Session) error {
	raw, err := encode(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	target := f.path(session.Account)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Delete removes the stored session; deleting nothing is not an error.
func (f *File) Delete(_ context.Context, account string) error {
	if err := os.Remove(f.path(account)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func encode(session domain.Session) ([]byte, error) {
	if session.Account == "" {
		return nil, &domain.ValidationError{Problems: []string{"session account is empty"}}
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
