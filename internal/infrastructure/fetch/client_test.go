package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
)

func testConfig() config.FetchConfig {
	return config.FetchConfig{
		UserAgent:      "NewsRelayTest/1.0",
		AcceptLanguage: "en",
		Timeout:        200 * time.Millisecond,
	}
}

func TestFetchSendsConsistentHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NewsRelayTest/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	body, err := NewClient(testConfig(), nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(), nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFetch))
}

func TestFetchTimeoutIsFetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	_, err := NewClient(testConfig(), nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestDownloadWritesFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	path, err := NewClient(testConfig(), nil).Download(context.Background(), server.URL+"/lead", dir)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(raw))
}

func TestDownloadRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		if r.URL.Path == "/declared" {
			w.Header().Set("Content-Length", "4096")
		}
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 1000
	client := NewClient(cfg, nil)

	for _, p := range []string{"/streamed", "/declared"} {
		dir := t.TempDir()
		_, err := client.Download(context.Background(), server.URL+p, dir)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, domain.ErrFetch), p)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no partial file for %s", p)
	}

	cfg.MaxBodyBytes = 4096
	path, err := NewClient(cfg, nil).Download(context.Background(), server.URL+"/streamed", t.TempDir())
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, info.Size())
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example/1"))
	require.NoError(t, limiter.Wait(ctx, "https://b.example/1"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts do not wait")

	require.NoError(t, limiter.Wait(ctx, "https://a.example/2"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	assert.Error(t, limiter.Wait(ctx, "not a url"))
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".jpg", extensionFor("image/jpeg", "https://x/y"))
	assert.Equal(t, ".webp", extensionFor("", "https://x/y/pic.webp?w=100"))
	assert.Equal(t, ".img", extensionFor("", "https://x/y/pic"))
}
