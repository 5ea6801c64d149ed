package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) SetDevice(device domain.DeviceFingerprint) {
	m.Called(device)
}

func (m *mockPlatform) LoadState(state json.RawMessage) error {
	return m.Called(state).Error(0)
}

func (m *mockPlatform) DumpState() (json.RawMessage, error) {
	args := m.Called()
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockPlatform) AccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AccountInfo), args.Error(1)
}

func (m *mockPlatform) Relogin(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockPlatform) Login(ctx context.Context, creds domain.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

func (m *mockPlatform) UploadPhoto(ctx context.Context, imagePath, caption string) (domain.Media, error) {
	args := m.Called(ctx, imagePath, caption)
	return args.Get(0).(domain.Media), args.Error(1)
}

func (m *mockPlatform) MediaInsights(ctx context.Context, mediaID string) (domain.Engagement, error) {
	args := m.Called(ctx, mediaID)
	return args.Get(0).(domain.Engagement), args.Error(1)
}

type memorySessions struct {
	mu      sync.Mutex
	data    map[string]domain.Session
	deletes int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: map[string]domain.Session{}}
}

func (s *memorySessions) Load(_ context.Context, account string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.data[account]
	if !ok {
		return domain.Session{}, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	return session, nil
}

func (s *memorySessions) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.Account] = session
	return nil
}

func (s *memorySessions) Delete(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.data, account)
	return nil
}

// memoryPosts implements the post methods the publisher uses.
type memoryPosts struct {
	ports.PostStore

	mu    sync.Mutex
	posts map[int64]domain.Post
}

func newMemoryPosts(posts ...domain.Post) *memoryPosts {
	m := &memoryPosts{posts: map[int64]domain.Post{}}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memoryPosts) GetPost(_ context.Context, id int64) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return domain.Post{}, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return post, nil
}

func (m *memoryPosts) TransitionPost(_ context.Context, id int64, to domain.PostStatus, update ports.PostUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok || !domain.CanTransition(post.Status, to) {
		return false, nil
	}
	post.Status = to
	if update.PublishedAt != nil {
		post.PublishedAt = *update.PublishedAt
	}
	if update.ScheduledAt != nil {
		post.ScheduledAt = *update.ScheduledAt
	}
	if update.Caption != nil {
		post.Caption = *update.Caption
	}
	if update.Error != nil {
		post.Error = *update.Error
	}
	if update.ExternalID != "" {
		post.ExternalID = update.ExternalID
	}
	if update.ExternalURL != "" {
		post.ExternalURL = update.ExternalURL
	}
	m.posts[id] = post
	return true, nil
}

func (m *memoryPosts) RecordPostError(_ context.Context, id int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	post.Error = message
	m.posts[id] = post
	return nil
}

// brokenPosts fails every transition while broken is set.
type brokenPosts struct {
	*memoryPosts

	broken      atomic.Bool
	transitions atomic.Int32
}

func (b *brokenPosts) TransitionPost(ctx context.Context, id int64, to domain.PostStatus, update ports.PostUpdate) (bool, error) {
	b.transitions.Add(1)
	if b.broken.Load() {
		return false, fmt.Errorf("transition post: %w: database is locked", domain.ErrPersistence)
	}
	return b.memoryPosts.TransitionPost(ctx, id, to, update)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}
