package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"status-service/core/utils"
)

var ErrNotFound = errors.New("not found")

// IncidentFields are the descriptive fields an incident carries and every
// history entry freezes a copy of.
type IncidentFields struct {
	Service       string
	PreviousState string
	CurrentState  string
	Title         string
	Description   string
	Components    []string
	URL           string
}

type Incident struct {
	ID        int64
	CreatedAt time.Time
	IncidentFields
}

type HistoryEntry struct {
	ID         int64
	IncidentID int64
	RecordedAt time.Time
	IncidentFields
}

type IncidentFilter struct {
	Service   string
	Since     *time.Time
	Limit     int
	Ascending bool
}

type HistoryFilter struct {
	IncidentIDs []int64
	Limit       int
}

func componentsToJSON(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func componentsFromJSON(raw string) []string {
	items := []string{}
	if strings.TrimSpace(raw) == "" {
		return items
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

// dbTime scans timestamps from either driver. sqlite hands back text for
// aggregates such as MAX(created_at).
type dbTime struct {
	Time time.Time
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	parsed, err := utils.ParseDateTime(raw)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}
