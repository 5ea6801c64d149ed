package scanner

import (
	"fmt"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Kind tags where a strategy sits in the extraction cascade.
type Kind string

const (
	KindSourceSpecific Kind = "source-specific"
	KindGeneric        Kind = "generic"
	KindFallback       Kind = "fallback-heuristic"
)

// Page is a fetched document handed to extraction strategies.
type Page struct {
	URL       string
	HTML      []byte
	Doc       *goquery.Document
	FetchedAt time.Time
}

// Strategy recovers the article body from a page. It reports false when the
// page does not carry enough content for it.
type Strategy interface {
	Name() string
	Kind() Kind
	Extract(page Page) (string, bool)
}

// Chain runs strategies in order until one succeeds.
type Chain []Strategy

// Run returns the first body accepted by accept and the strategy that
// produced it. A nil accept takes any successful extraction.
func (c Chain) Run(page Page, accept func(body string) bool) (string, Strategy, bool) {
	for _, s := range c {
		body, ok := s.Extract(page)
		if !ok {
			continue
		}
		if accept == nil || accept(body) {
			return body, s, true
		}
	}
	return "", nil, false
}

// Profile is the per-site selector data behind a source-specific strategy.
// Empty lists fall through to the generic locators.
type Profile struct {
	Name          string
	Content       []string
	Headline      []string
	Author        []string
	Date          []string
	Image         []string
	MinParagraphs int
	AlphaRatio    float64
}

// Merge returns p with hint selectors placed ahead of its own.
func (p Profile) Merge(hints Profile) Profile {
	out := p
	out.Content = prepend(hints.Content, p.Content)
	out.Headline = prepend(hints.Headline, p.Headline)
	out.Author = prepend(hints.Author, p.Author)
	out.Date = prepend(hints.Date, p.Date)
	out.Image = prepend(hints.Image, p.Image)
	return out
}

func prepend(first, rest []string) []string {
	if len(first) == 0 {
		return rest
	}
	out := make([]string, 0, len(first)+len(rest))
	out = append(out, first...)
	return append(out, rest...)
}

// Registry keeps a mapping from profile names to their selector data.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: map[string]Profile{}}
}

// Register adds or replaces a profile.
func (r *Registry) Register(profile Profile) {
	if r.profiles == nil {
		r.profiles = map[string]Profile{}
	}
	r.profiles[profile.Name] = profile
}

// Resolve returns a profile by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Profile, error) {
	if profile, ok := r.profiles[name]; ok {
		return profile, nil
	}
	return Profile{}, fmt.Errorf("profile %s is not registered", name)
}

// Names lists registered profiles in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
