package models

import (
	"bytes"
	"encoding/json"
	"time"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Date is a timestamp that tolerates the date-only strings some records carry.
// The zero value means unset and marshals as null. Values that are not a
// string in a known layout decode as unset.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date { return Date{Time: t} }

// ParseDate parses s with the layouts the API is known to emit.
func ParseDate(s string) (Date, error) {
	var last error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Date{Time: t}, nil
		}
		last = err
	}
	return Date{}, last
}

// MustDate is for literals in tests and static data.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	*d = Date{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	// A date in an unknown layout reads as unset so one bad record cannot
	// fail a whole list.
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}
