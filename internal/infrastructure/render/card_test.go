package render

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestRenderWritesSizedCard(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := NewCardRenderer(config.RenderConfig{OutputDir: dir, Width: 400, Height: 400}, nil)

	path, err := r.Render(context.Background(), ports.RenderRequest{
		Text:     "Parliament passes the budget after a long night of debate",
		Category: "politics",
		Layout:   domain.TemplateAnalysis,
		Source:   "cbc",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".png"))

	img := decodePNG(t, path)
	assert.Equal(t, image.Rect(0, 0, 400, 400), img.Bounds())
	r32, g32, b32, _ := img.At(396, 2).RGBA()
	want := categoryColors["politics"]
	assert.Equal(t, color.RGBA{R: uint8(r32 >> 8), G: uint8(g32 >> 8), B: uint8(b32 >> 8), A: 0xFF}, want)
}

func TestRenderRejectsEmptyText(t *testing.T) {
	t.Parallel()
	r := NewCardRenderer(config.RenderConfig{OutputDir: t.TempDir()}, nil)

	_, err := r.Render(context.Background(), ports.RenderRequest{Text: "  "})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestRenderWithBackground(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	bgPath := filepath.Join(dir, "bg.png")
	bg := image.NewRGBA(image.Rect(0, 0, 20, 20))
	f, err := os.Create(bgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, bg))
	require.NoError(t, f.Close())

	r := NewCardRenderer(config.RenderConfig{OutputDir: dir, Width: 200, Height: 200}, nil)
	path, err := r.Render(context.Background(), ports.RenderRequest{
		Text:       "Storm hits the coast",
		Layout:     domain.TemplateBreaking,
		Background: bgPath,
	})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), decodePNG(t, path).Bounds())

	// A missing background falls back to the plain card.
	_, err = r.Render(context.Background(), ports.RenderRequest{Text: "x", Background: filepath.Join(dir, "missing.png")})
	require.NoError(t, err)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"one two", "three", "four"}, wrap("one two three four", 7))
	assert.Equal(t, []string{"abcde", "fgh", "ij"}, wrap("abcdefgh ij", 5))
	assert.Nil(t, wrap("anything", 0))
}

func TestCleanupRemovesStaleFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := NewCardRenderer(config.RenderConfig{OutputDir: dir}, nil)

	old := filepath.Join(dir, "old.png")
	fresh := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := r.Cleanup(context.Background(), time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	missing := NewCardRenderer(config.RenderConfig{OutputDir: filepath.Join(dir, "nope")}, nil)
	removed, err = missing.Cleanup(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
