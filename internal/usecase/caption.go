package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
)

const (
	maxKeywordTags = 10
	maxTagLength   = 30
)

var categoryHashtags = map[string][]string{
	"politics":      {"#politics", "#government", "#policy"},
	"business":      {"#business", "#economy", "#finance"},
	"economy":       {"#economy", "#business", "#finance"},
	"technology":    {"#tech", "#technology", "#innovation"},
	"health":        {"#health", "#healthcare", "#medical"},
	"sports":        {"#sports", "#athletics"},
	"entertainment": {"#entertainment", "#celebrity"},
	"science":       {"#science", "#research"},
	"environment":   {"#environment", "#climate", "#green"},
	"breaking":      {"#breaking", "#breakingnews"},
}

var templateHeaders = map[domain.Template]string{
	domain.TemplateBreaking: "🚨 BREAKING: ",
	domain.TemplateAnalysis: "📊 ",
	domain.TemplateFeature:  "📰 ",
}

// CaptionBuilder renders post captions and hashtag sets.
type CaptionBuilder struct {
	maxLength   int
	maxHashtags int
	base        []string
}

// NewCaptionBuilder applies posting limits.
func NewCaptionBuilder(cfg config.PostingConfig) CaptionBuilder {
	b := CaptionBuilder{maxLength: cfg.MaxCaptionLength, maxHashtags: cfg.MaxHashtags, base: cfg.BaseHashtags}
	if b.maxLength <= 0 {
		b.maxLength = 2200
	}
	if b.maxHashtags <= 0 {
		b.maxHashtags = 30
	}
	if len(b.base) == 0 {
		b.base = []string{"#news", "#update"}
	}
	return b
}

// ChooseTemplate picks a layout from the article's wording and category.
func ChooseTemplate(article domain.Article) domain.Template {
	text := strings.ToLower(article.Headline + " " + article.Body)
	for _, k := range []string{"breaking", "urgent", "alert"} {
		if strings.Contains(text, k) {
			return domain.TemplateBreaking
		}
	}
	switch strings.ToLower(article.Category) {
	case "politics", "economy":
		return domain.TemplateAnalysis
	}
	if strings.Contains(text, "analysis") {
		return domain.TemplateAnalysis
	}
	return domain.TemplateFeature
}

// Build returns the caption text and the hashtags it ends with.
func (b CaptionBuilder) Build(article domain.Article, tmpl domain.Template) (string, []string) {
	tags := b.Hashtags(article, tmpl)

	var parts []string
	headline := strings.TrimSpace(article.Headline)
	if headline == "" {
		headline = "News Update"
	}
	parts = append(parts, templateHeaders[domain.ParseTemplate(string(tmpl))]+headline)

	if summary := strings.TrimSpace(article.Summary); summary != "" {
		parts = append(parts, summary)
	}
	if tmpl == domain.TemplateAnalysis && article.Source != "" {
		parts = append(parts, "Source: "+article.Source)
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}

	return truncateRunes(strings.Join(parts, "\n\n"), b.maxLength), tags
}

// Hashtags collects base, template, category and keyword tags without
// duplicates, capped at the platform limit.
func (b CaptionBuilder) Hashtags(article domain.Article, tmpl domain.Template) []string {
	seen := map[string]bool{}
	var out []string
	add := func(tag string) {
		tag = strings.ToLower(tag)
		if seen[tag] || len(out) >= b.maxHashtags {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}

	for _, t := range b.base {
		add(t)
	}
	if tmpl == domain.TemplateBreaking {
		add("#breaking")
	}
	for _, t := range categoryHashtags[strings.ToLower(article.Category)] {
		add(t)
	}

	used := 0
	for _, kw := range article.Keywords {
		if used >= maxKeywordTags {
			break
		}
		tag, ok := keywordTag(kw)
		if !ok {
			continue
		}
		used++
		add(tag)
	}
	return out
}

func keywordTag(keyword string) (string, bool) {
	word := strings.ReplaceAll(strings.TrimSpace(keyword), " ", "")
	if utf8.RuneCountInString(word) <= 2 {
		return "", false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	tag := "#" + strings.ToLower(word)
	if utf8.RuneCountInString(tag) > maxTagLength {
		return "", false
	}
	return tag, true
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
