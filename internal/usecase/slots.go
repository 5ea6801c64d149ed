package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const (
	slotSearchHours = 7 * 24
	slotFallback    = 24 * time.Hour
)

type clock struct {
	hour, minute int
}

// SlotAllocator picks publish times that respect the minimum spacing between
// published posts and the per-day cap. Only published posts count; the
// decision reads the store right before answering.
type SlotAllocator struct {
	posts       ports.PostStore
	preferred   []clock
	minInterval time.Duration
	maxPerDay   int
	loc         *time.Location
	now         func() time.Time
}

// NewSlotAllocator builds an allocator from posting configuration.
// Malformed preferred times are ignored.
func NewSlotAllocator(posts ports.PostStore, cfg config.PostingConfig, now func() time.Time) *SlotAllocator {
	if now == nil {
		now = time.Now
	}
	maxPerDay := cfg.MaxPostsPerDay
	if maxPerDay <= 0 {
		maxPerDay = 5
	}
	return &SlotAllocator{
		posts:       posts,
		preferred:   parseClocks(cfg.PreferredTimes),
		minInterval: time.Duration(cfg.MinIntervalHours * float64(time.Hour)),
		maxPerDay:   maxPerDay,
		loc:         cfg.Location(),
		now:         now,
	}
}

func parseClocks(values []string) []clock {
	out := make([]clock, 0, len(values))
	for _, v := range values {
		var c clock
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d:%d", &c.hour, &c.minute); err != nil {
			continue
		}
		if c.hour < 0 || c.hour > 23 || c.minute < 0 || c.minute > 59 {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hour != out[j].hour {
			return out[i].hour < out[j].hour
		}
		return out[i].minute < out[j].minute
	})
	return out
}

// NextSlot returns the earliest acceptable publish time. Preferred times of
// today still ahead are tried first, then every preferred time tomorrow, then
// an hourly search over the next seven days. When nothing qualifies the
// answer is now plus 24 hours. All categories share one calendar.
func (s *SlotAllocator) NextSlot(ctx context.Context, _ string) (time.Time, error) {
	now := s.now().In(s.loc)

	last, hasLast, err := s.posts.LastPublishedAt(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("next slot: %w", err)
	}
	counts := map[time.Time]int{}

	for _, cand := range s.preferredCandidates(now) {
		ok, err := s.fits(ctx, cand, last, hasLast, counts)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return cand, nil
		}
	}

	cand := now
	for i := 0; i < slotSearchHours; i++ {
		ok, err := s.fits(ctx, cand, last, hasLast, counts)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return cand, nil
		}
		cand = cand.Add(time.Hour)
	}

	return now.Add(slotFallback), nil
}

func (s *SlotAllocator) preferredCandidates(now time.Time) []time.Time {
	out := make([]time.Time, 0, 2*len(s.preferred))
	for day := 0; day < 2; day++ {
		base := now.AddDate(0, 0, day)
		for _, c := range s.preferred {
			cand := time.Date(base.Year(), base.Month(), base.Day(), c.hour, c.minute, 0, 0, s.loc)
			if !cand.After(now) {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

// fits applies the interval and daily cap rules. A candidate before the last
// published post yields a negative gap and is rejected.
func (s *SlotAllocator) fits(ctx context.Context, cand, last time.Time, hasLast bool, counts map[time.Time]int) (bool, error) {
	if hasLast && cand.Sub(last) < s.minInterval {
		return false, nil
	}
	n, err := s.dayCount(ctx, cand, counts)
	if err != nil {
		return false, err
	}
	return n < s.maxPerDay, nil
}

func (s *SlotAllocator) dayCount(ctx context.Context, t time.Time, cache map[time.Time]int) (int, error) {
	start := s.dayStart(t)
	if n, ok := cache[start]; ok {
		return n, nil
	}
	n, err := s.posts.CountPublishedBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("count published: %w", err)
	}
	cache[start] = n
	return n, nil
}

func (s *SlotAllocator) dayStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Check validates an explicitly requested time. Every violated rule is
// listed in the returned ValidationError.
func (s *SlotAllocator) Check(ctx context.Context, at time.Time) error {
	problems := &domain.ValidationError{}
	now := s.now()

	if at.Before(now) {
		problems.Add(fmt.Sprintf("time %s is in the past", at.Format(time.RFC3339)))
	}

	last, hasLast, err := s.posts.LastPublishedAt(ctx)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if hasLast && at.Sub(last) < s.minInterval {
		problems.Add(fmt.Sprintf("less than %s after last published post at %s",
			s.minInterval, last.In(s.loc).Format(time.RFC3339)))
	}

	n, err := s.dayCount(ctx, at, map[time.Time]int{})
	if err != nil {
		return err
	}
	if n >= s.maxPerDay {
		problems.Add(fmt.Sprintf("day %s already has %d published posts (max %d)",
			s.dayStart(at).Format("2006-01-02"), n, s.maxPerDay))
	}

	return problems.Err()
}

// Eligibility decides whether an article may be posted without an operator.
type Eligibility struct {
	categories map[string]bool
	urgency    []string
	minWords   int
}

// NewEligibility builds the rule set from posting configuration.
func NewEligibility(cfg config.PostingConfig) Eligibility {
	cats := make(map[string]bool, len(cfg.AutoPostCategories))
	for _, c := range cfg.AutoPostCategories {
		cats[strings.ToLower(c)] = true
	}
	urgency := make([]string, 0, len(cfg.UrgencyKeywords))
	for _, k := range cfg.UrgencyKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			urgency = append(urgency, k)
		}
	}
	return Eligibility{categories: cats, urgency: urgency, minWords: cfg.MinWordsForAuto}
}

// Check returns whether the article qualifies and which rule matched first.
func (e Eligibility) Check(article domain.Article) (bool, string) {
	if e.categories[strings.ToLower(article.Category)] {
		return true, "category " + article.Category
	}
	text := strings.ToLower(article.Headline + " " + article.Body)
	for _, k := range e.urgency {
		if strings.Contains(text, k) {
			return true, "urgency keyword " + k
		}
	}
	if e.minWords > 0 && article.WordCount() >= e.minWords && article.HasImage() {
		return true, "long article with image"
	}
	return false, "no rule matched"
}
