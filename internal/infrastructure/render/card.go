// Package render draws the reference post image: a coloured card with the
// headline, optionally over the article photo.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// The card is drawn at 1/scale and enlarged so the bitmap font stays legible.
const scale = 4

var categoryColors = map[string]color.RGBA{
	"breaking":    {R: 0xCC, G: 0x00, B: 0x00, A: 0xFF},
	"politics":    {R: 0x00, G: 0x66, B: 0xCC, A: 0xFF},
	"economy":     {R: 0x00, G: 0x66, B: 0xCC, A: 0xFF},
	"health":      {R: 0x00, G: 0xAA, B: 0x44, A: 0xFF},
	"environment": {R: 0x00, G: 0xAA, B: 0x44, A: 0xFF},
	"technology":  {R: 0x66, G: 0x33, B: 0x99, A: 0xFF},
}

var defaultColor = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}

// CardRenderer writes PNG cards into a directory.
type CardRenderer struct {
	dir    string
	width  int
	height int
	log    *slog.Logger
}

var _ ports.AssetRenderer = (*CardRenderer)(nil)

// NewCardRenderer builds a renderer from configuration.
func NewCardRenderer(cfg config.RenderConfig, log *slog.Logger) *CardRenderer {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 1080
	}
	return &CardRenderer{dir: cfg.OutputDir, width: width, height: height, log: logger.For(log, "render")}
}

// Render draws the card and returns the file path.
func (r *CardRenderer) Render(ctx context.Context, req ports.RenderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", &domain.ValidationError{Problems: []string{"render text is empty"}}
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create render dir: %w", err)
	}

	small := r.drawCard(req)
	card := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if bg := r.background(req.Background); bg != nil {
		draw.CatmullRom.Scale(card, card.Bounds(), bg, bg.Bounds(), draw.Src, nil)
		draw.NearestNeighbor.Scale(card, card.Bounds(), small, small.Bounds(), draw.Over, nil)
	} else {
		draw.NearestNeighbor.Scale(card, card.Bounds(), small, small.Bounds(), draw.Src, nil)
	}

	path := filepath.Join(r.dir, uuid.NewString()+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create card: %w", err)
	}
	if err := png.Encode(f, card); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("encode card: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close card: %w", err)
	}
	return path, nil
}

func (r *CardRenderer) drawCard(req ports.RenderRequest) *image.RGBA {
	w, h := r.width/scale, r.height/scale
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	band, ok := categoryColors[strings.ToLower(req.Category)]
	if !ok {
		band = defaultColor
	}
	panel := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	if req.Background != "" {
		panel = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0x99}
	}

	bandHeight := h / 8
	textTop := bandHeight
	if req.Layout == domain.TemplateBreaking {
		textTop = h / 2
	}
	draw.Draw(img, image.Rect(0, textTop, w, h), &image.Uniform{C: panel}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, w, bandHeight), &image.Uniform{C: band}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	label := strings.ToUpper(labelFor(req))
	drawLine(img, face, image.White, label, 8, bandHeight/2+face.Ascent/2)

	ink := image.Image(image.Black)
	if req.Background != "" {
		ink = image.White
	}
	margin := 8
	lineHeight := face.Height + 3
	maxChars := (w - 2*margin) / face.Advance
	y := textTop + margin + face.Ascent
	for _, line := range wrap(req.Text, maxChars) {
		if y > h-margin {
			break
		}
		drawLine(img, face, ink, line, margin, y)
		y += lineHeight
	}
	if req.Source != "" {
		drawLine(img, face, ink, "Source: "+req.Source, margin, h-margin)
	}
	return img
}

func labelFor(req ports.RenderRequest) string {
	switch {
	case req.Layout == domain.TemplateBreaking:
		return "Breaking news"
	case req.Category != "":
		return req.Category
	default:
		return "News"
	}
}

func drawLine(dst draw.Image, face *basicfont.Face, ink image.Image, text string, x, y int) {
	d := font.Drawer{Dst: dst, Src: ink, Face: face, Dot: fixed.P(x, y)}
	d.DrawString(text)
}

// wrap breaks text on spaces into lines of at most width characters.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var (
		lines   []string
		current string
	)
	for _, word := range strings.Fields(text) {
		for len(word) > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func (r *CardRenderer) background(path string) image.Image {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		r.log.Warn("background unavailable", "path", path, "error", err)
		return nil
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		r.log.Warn("background not decodable", "path", path, "error", err)
		return nil
	}
	return img
}

// Cleanup removes rendered files last modified before the cutoff.
func (r *CardRenderer) Cleanup(ctx context.Context, before time.Time) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read render dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, entry.Name())); err != nil {
			r.log.Warn("remove stale image", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
