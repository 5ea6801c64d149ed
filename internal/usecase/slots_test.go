package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// publishedLog answers the two queries the allocator needs.
type publishedLog struct {
	ports.PostStore
	times []time.Time
	err   error
}

func (l *publishedLog) LastPublishedAt(context.Context) (time.Time, bool, error) {
	if l.err != nil {
		return time.Time{}, false, l.err
	}
	var last time.Time
	for _, t := range l.times {
		if t.After(last) {
			last = t
		}
	}
	return last, !last.IsZero(), nil
}

func (l *publishedLog) CountPublishedBetween(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, t := range l.times {
		if !t.Before(from) && t.Before(to) {
			n++
		}
	}
	return n, nil
}

func postingConfig() config.PostingConfig {
	return config.PostingConfig{
		PreferredTimes:     []string{"09:00", "12:00", "15:00", "18:00", "21:00"},
		MinIntervalHours:   3,
		MaxPostsPerDay:     5,
		AutoPostCategories: []string{"breaking", "politics", "economy"},
		UrgencyKeywords:    []string{"breaking", "urgent", "alert", "developing"},
		MinWordsForAuto:    200,
		MaxCaptionLength:   2200,
		MaxHashtags:        30,
		BaseHashtags:       []string{"#news", "#update"},
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextSlotPicksNextPreferredTimeToday(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	alloc := NewSlotAllocator(&publishedLog{}, postingConfig(), fixedNow(now))

	slot, err := alloc.NextSlot(context.Background(), "politics")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), slot)
}

func TestNextSlotHonoursMinimumInterval(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	log := &publishedLog{times: []time.Time{time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}}
	alloc := NewSlotAllocator(log, postingConfig(), fixedNow(now))

	slot, err := alloc.NextSlot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), slot)
}

func TestNextSlotMovesToTomorrowWhenDayIsFull(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	var times []time.Time
	for h := 0; h < 5; h++ {
		times = append(times, time.Date(2026, 3, 2, h*2, 0, 0, 0, time.UTC))
	}
	alloc := NewSlotAllocator(&publishedLog{times: times}, postingConfig(), fixedNow(now))

	slot, err := alloc.NextSlot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), slot)
}

func TestNextSlotFallsBackAfterSearchWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	// A published post far ahead makes every candidate gap negative.
	log := &publishedLog{times: []time.Time{now.AddDate(0, 0, 10)}}
	alloc := NewSlotAllocator(log, postingConfig(), fixedNow(now))

	slot, err := alloc.NextSlot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), slot)
}

func TestNextSlotPropagatesStoreErrors(t *testing.T) {
	t.Parallel()
	alloc := NewSlotAllocator(&publishedLog{err: errors.New("db down")}, postingConfig(), time.Now)

	_, err := alloc.NextSlot(context.Background(), "")
	require.Error(t, err)
}

func TestSlotsNeverBreakIntervalOrDailyCap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := postingConfig()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	log := &publishedLog{}
	alloc := NewSlotAllocator(log, cfg, fixedNow(now))

	perDay := map[string]int{}
	for i := 0; i < 20; i++ {
		slot, err := alloc.NextSlot(ctx, "")
		require.NoError(t, err)

		if last, ok, _ := log.LastPublishedAt(ctx); ok {
			require.GreaterOrEqualf(t, slot.Sub(last), 3*time.Hour, "slot %d at %s too close to %s", i, slot, last)
		}
		day := slot.Format("2006-01-02")
		perDay[day]++
		require.LessOrEqualf(t, perDay[day], cfg.MaxPostsPerDay, "day %s over cap", day)

		log.times = append(log.times, slot)
	}
	assert.Equal(t, 5, perDay["2026-03-02"])
	assert.Equal(t, 5, perDay["2026-03-03"])
}

func TestCheckListsEveryViolation(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	var times []time.Time
	for h := 0; h < 5; h++ {
		times = append(times, time.Date(2026, 3, 2, 1+h, 0, 0, 0, time.UTC))
	}
	alloc := NewSlotAllocator(&publishedLog{times: times}, postingConfig(), fixedNow(now))

	err := alloc.Check(context.Background(), time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC))
	require.ErrorIs(t, err, domain.ErrValidation)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 3)

	assert.NoError(t, alloc.Check(context.Background(), time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)))
}

func TestEligibilityFirstMatchWins(t *testing.T) {
	t.Parallel()
	rules := NewEligibility(postingConfig())

	ok, reason := rules.Check(domain.Article{Category: "Politics", Headline: "Vote today"})
	assert.True(t, ok)
	assert.Equal(t, "category Politics", reason)

	ok, reason = rules.Check(domain.Article{Category: "sports", Headline: "Developing: storm hits coast"})
	assert.True(t, ok)
	assert.Equal(t, "urgency keyword developing", reason)

	long := domain.Article{Category: "sports", Headline: "Season recap", Body: words(250)}
	ok, _ = rules.Check(long)
	assert.False(t, ok, "long article without image")

	long.ImageURL = "https://cdn.example/a.jpg"
	ok, reason = rules.Check(long)
	assert.True(t, ok)
	assert.Equal(t, "long article with image", reason)
}
