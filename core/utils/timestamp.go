package utils

import (
	"strconv"
	"strings"
	"time"
)

const (
	isoSeconds = "2006-01-02T15:04:05"
	isoMicros  = "2006-01-02T15:04:05.000000"
)

// ISOTimestamp formats t as a naive UTC ISO-8601 value: seconds precision,
// plus exactly six fractional digits when the microsecond part is non-zero.
func ISOTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(isoSeconds)
	}
	return t.Format(isoMicros)
}

// SpacedTimestamp is ISOTimestamp with a space between date and time.
func SpacedTimestamp(t time.Time) string {
	return strings.Replace(ISOTimestamp(t), "T", " ", 1)
}

// Timestamp marshals to JSON with ISOTimestamp.
type Timestamp time.Time

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(ISOTimestamp(time.Time(t)))), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := ParseDateTime(raw)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 and naive ISO values. Naive values are UTC.
func ParseDateTime(raw string) (time.Time, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return time.Time{}, strconv.ErrSyntax
	}
	// A '+' offset arrives as a space when the query string was not encoded.
	if i := strings.LastIndex(val, " "); i > 10 && len(val)-i == 6 && strings.Count(val[i:], ":") == 1 {
		val = val[:i] + "+" + val[i+1:]
	}
	for _, layout := range dateTimeLayouts {
		if parsed, err := time.Parse(layout, val); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, strconv.ErrSyntax
}
