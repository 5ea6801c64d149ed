package storage

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"NewsRelay/internal/domain"
)

// StringList stores a []string as JSON text so it works on both drivers.
type StringList []string

// Scan implements sql.Scanner.
func (s *StringList) Scan(src interface{}) error {
	if s == nil {
		return fmt.Errorf("storage: Scan on nil *StringList")
	}
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("storage: StringList: %w", err)
	}
	if len(raw) == 0 {
		*s = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// EngagementJSON stores engagement metrics as a JSON object.
type EngagementJSON domain.Engagement

// Scan implements sql.Scanner.
func (e *EngagementJSON) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("storage: Engagement: %w", err)
	}
	*e = EngagementJSON{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, (*domain.Engagement)(e))
}

// Value implements driver.Valuer.
func (e EngagementJSON) Value() (driver.Value, error) {
	b, err := json.Marshal(domain.Engagement(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan type %T", src)
	}
}

// dbTime normalises timestamps so sqlite text comparisons stay ordered.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(t), Valid: true}
}

func fromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
