package domain

import (
	"errors"
	"strings"
)

var (
	ErrFetch                  = errors.New("fetch failed")
	ErrExtractionInsufficient = errors.New("extraction insufficient")
	ErrValidation             = errors.New("validation failed")
	ErrAuthChallenge          = errors.New("auth challenge required")
	ErrRateLimited            = errors.New("rate limited")
	ErrLoginRequired          = errors.New("login required")
	ErrPersistence            = errors.New("persistence failed")
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	// ErrUnrecorded marks media that reached the platform while the local
	// record of it did not. Retrying would post it twice.
	ErrUnrecorded = errors.New("published but not recorded")
)

// ValidationError lists every problem found in a rejected input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a problem.
func (e *ValidationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// Err returns nil when no problems were recorded.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ErrorKind is a coarse classification of a publish failure.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindValidation    ErrorKind = "validation"
	KindAuthChallenge ErrorKind = "auth_challenge"
	KindRateLimited   ErrorKind = "rate_limited"
	KindLoginRequired ErrorKind = "login_required"
	KindNotFound      ErrorKind = "not_found"
	KindTransition    ErrorKind = "invalid_transition"
	KindUnrecorded    ErrorKind = "unrecorded"
	KindPersistence   ErrorKind = "persistence"
	KindUnknown       ErrorKind = "unknown"
)

// Classify maps an error onto its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnrecorded):
		return KindUnrecorded
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuthChallenge):
		return KindAuthChallenge
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrLoginRequired):
		return KindLoginRequired
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindTransition
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// Retryable reports whether the operation may succeed if tried again later.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindValidation, KindAuthChallenge, KindNotFound, KindTransition, KindUnrecorded:
		return false
	case KindNone:
		return false
	default:
		return true
	}
}
