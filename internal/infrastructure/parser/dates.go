package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006 at 3:04 PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02",
}

var (
	relativeDate = regexp.MustCompile(`(?i)(\d+)\s*(minute|min|hour|hr|day|week|month)s?\s+ago`)
	datePrefix   = regexp.MustCompile(`(?i)^(posted|updated|published|last updated)\s*:?\s*`)
)

// ParseDate interprets a date string from a page. Absolute layouts are tried
// first, then relative phrases measured back from now, then a permissive parser.
func ParseDate(raw string, now time.Time) (time.Time, bool) {
	value := datePrefix.ReplaceAllString(cleanText(raw), "")
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	if m := relativeDate.FindStringSubmatch(value); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return now.Add(-time.Duration(n) * relativeUnit(m[2])).UTC(), true
		}
	}

	if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func relativeUnit(unit string) time.Duration {
	switch strings.ToLower(unit) {
	case "minute", "min":
		return time.Minute
	case "hour", "hr":
		return time.Hour
	case "day":
		return 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
