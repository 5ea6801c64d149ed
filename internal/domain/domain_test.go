package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to PostStatus
		want     bool
	}{
		{PostDraft, PostScheduled, true},
		{PostDraft, PostPublished, true},
		{PostScheduled, PostScheduled, true},
		{PostScheduled, PostPublished, true},
		{PostScheduled, PostFailed, true},
		{PostScheduled, PostDraft, false},
		{PostPublished, PostScheduled, false},
		{PostPublished, PostFailed, false},
		{PostPublished, PostDraft, false},
		{PostFailed, PostPublished, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSourceStatuses(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []PostStatus{PostDraft, PostScheduled}, SourceStatuses(PostPublished))
	assert.Empty(t, SourceStatuses(PostDraft))
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, Session{}.Expired(now))
	assert.False(t, Session{LastValidatedAt: now.Add(-29 * 24 * time.Hour)}.Expired(now))
	assert.True(t, Session{LastValidatedAt: now.Add(-31 * 24 * time.Hour)}.Expired(now))
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	assert.NoError(t, v.Err())

	v.Add("caption is empty")
	v.Add("image missing")
	err := fmt.Errorf("publish: %w", v.Err())

	assert.ErrorIs(t, err, ErrValidation)
	var target *ValidationError
	assert.True(t, errors.As(err, &target))
	assert.Len(t, target.Problems, 2)
	assert.False(t, Retryable(err))
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, Retryable(fmt.Errorf("x: %w", ErrRateLimited)))
	assert.True(t, Retryable(fmt.Errorf("x: %w", ErrLoginRequired)))
	assert.True(t, Retryable(errors.New("boom")))
	assert.False(t, Retryable(fmt.Errorf("x: %w", ErrAuthChallenge)))
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(fmt.Errorf("x: %w", ErrInvalidTransition)))
	assert.Equal(t, KindRateLimited, Classify(ErrRateLimited))
}

func TestUnrecordedUploadIsNotRetryable(t *testing.T) {
	t.Parallel()

	stored := fmt.Errorf("transition post: %w: database is locked", ErrPersistence)
	assert.Equal(t, KindPersistence, Classify(stored))
	assert.True(t, Retryable(stored), "nothing reached the platform yet")

	lost := fmt.Errorf("record media m-1: %w: %w", ErrUnrecorded, stored)
	assert.Equal(t, KindUnrecorded, Classify(lost))
	assert.False(t, Retryable(lost))
}

func TestArticleHelpers(t *testing.T) {
	t.Parallel()

	a := Article{Body: "one two  three\nfour"}
	assert.Equal(t, 4, a.WordCount())
	assert.False(t, a.HasImage())
	a.LocalImageRef = "/tmp/x.png"
	assert.True(t, a.HasImage())
	assert.Equal(t, TemplateFeature, ParseTemplate("nope"))
	assert.Equal(t, TemplateBreaking, ParseTemplate("breaking"))
}
