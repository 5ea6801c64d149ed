// Package analysis enriches stored articles with category, keywords and a
// summary, and decides which articles are worth analysing at all.
package analysis

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/parser"
	"NewsRelay/internal/ports"
)

const (
	// CategoryGeneral is used when no category rule matches.
	CategoryGeneral = "general"

	categoryHitRatio = 0.3
	maxProperNouns   = 10
	maxKeywords      = 20
)

var properNoun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var importantKeywords = []string{
	"breaking", "urgent", "alert", "developing", "exclusive",
	"government", "politics", "election", "parliament", "minister",
	"economy", "inflation", "recession", "gdp", "unemployment",
	"healthcare", "hospital", "pandemic", "vaccine",
	"climate", "environment", "carbon", "emissions",
	"housing", "mortgage", "rental", "affordability",
	"immigration", "refugee", "border",
	"education", "university", "school", "student",
	"technology", "cyber", "digital", "internet",
}

var importanceWeights = []struct {
	weight   float64
	keywords []string
}{
	{2.0, []string{"breaking", "urgent", "alert", "developing", "exclusive"}},
	{1.5, []string{"government", "minister", "parliament", "election"}},
	{1.2, []string{"economy", "inflation", "recession", "market", "unemployment"}},
	{1.0, []string{"health", "hospital", "pandemic", "outbreak"}},
}

var (
	positiveWords = []string{"win", "growth", "success", "improve", "celebrate", "record high", "breakthrough", "relief", "boost", "recover"}
	negativeWords = []string{"crash", "death", "dead", "killed", "crisis", "fail", "loss", "decline", "attack", "fraud", "fire", "flood"}
)

type categoryRule struct {
	name     string
	keywords []string
}

// Heuristic analyses text with keyword rules only. It never fails.
type Heuristic struct {
	rules []categoryRule
}

var _ ports.TextAnalyzer = (*Heuristic)(nil)

// NewHeuristic builds the analyzer from category → keyword lists. Categories
// are evaluated in name order so results are stable.
func NewHeuristic(categories map[string][]string) *Heuristic {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]categoryRule, 0, len(names))
	for _, name := range names {
		keywords := make([]string, 0, len(categories[name]))
		for _, kw := range categories[name] {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) > 0 {
			rules = append(rules, categoryRule{name: name, keywords: keywords})
		}
	}
	return &Heuristic{rules: rules}
}

// Analyze implements ports.TextAnalyzer.
func (h *Heuristic) Analyze(_ context.Context, headline, body string) (domain.Analysis, error) {
	text := strings.ToLower(headline + " " + body)
	return domain.Analysis{
		Category:   h.Categorize(text),
		Sentiment:  sentiment(text),
		Keywords:   extractKeywords(text, body),
		Summary:    parser.Summarize(body),
		Importance: importance(text, len(strings.Fields(body))),
	}, nil
}

// Categorize returns the first category whose keywords cover at least 30% of
// its list, else the first category with any hit, else general.
func (h *Heuristic) Categorize(lowerText string) string {
	fallback := ""
	for _, rule := range h.rules {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lowerText, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if float64(hits) >= float64(len(rule.keywords))*categoryHitRatio {
			return rule.name
		}
		if fallback == "" {
			fallback = rule.name
		}
	}
	if fallback != "" {
		return fallback
	}
	return CategoryGeneral
}

func extractKeywords(lowerText, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(kw string) {
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok || len(out) >= maxKeywords {
			return
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}

	for _, kw := range importantKeywords {
		if strings.Contains(lowerText, kw) {
			add(kw)
		}
	}
	for _, noun := range properNoun.FindAllString(body, maxProperNouns) {
		add(noun)
	}
	return out
}

func sentiment(lowerText string) string {
	score := 0
	for _, w := range positiveWords {
		score += strings.Count(lowerText, w)
	}
	for _, w := range negativeWords {
		score -= strings.Count(lowerText, w)
	}
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}

func importance(lowerText string, words int) float64 {
	score := 0.0
	for _, group := range importanceWeights {
		for _, kw := range group.keywords {
			if strings.Contains(lowerText, kw) {
				score += group.weight
			}
		}
	}
	if words > 500 {
		score += 0.5
	}
	if score > 10 {
		score = 10
	}
	return score
}
