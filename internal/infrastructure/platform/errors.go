package platform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"NewsRelay/internal/domain"
)

// apiError is the error envelope returned by the gateway.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

var (
	challengeMarkers = []string{"challenge", "checkpoint", "verification", "two_factor", "2fa", "suspicious", "manual login", "forceappupgrade"}
	rateMarkers      = []string{"rate_limit", "rate limit", "please wait", "feedback_required", "too many", "spam"}
	loginMarkers     = []string{"login_required", "login required", "unauthorized", "session expired"}
)

// classify turns a non-2xx gateway response into a domain error so callers
// can tell challenges, throttling and expired sessions apart.
func classify(status int, body []byte) error {
	var envelope apiError
	_ = json.Unmarshal(body, &envelope)
	text := strings.ToLower(strings.TrimSpace(envelope.Code + " " + envelope.Message))
	if text == "" {
		text = strings.ToLower(strings.TrimSpace(string(body)))
	}
	detail := text
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case containsAny(text, challengeMarkers):
		return fmt.Errorf("%w: %s", domain.ErrAuthChallenge, detail)
	case status == http.StatusTooManyRequests || containsAny(text, rateMarkers):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	case status == http.StatusUnauthorized || containsAny(text, loginMarkers):
		return fmt.Errorf("%w: %s", domain.ErrLoginRequired, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	default:
		return fmt.Errorf("platform error %d: %s", status, detail)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
