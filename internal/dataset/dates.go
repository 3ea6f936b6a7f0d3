package dataset

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006",
}

// ParseDate parses s with the first matching layout. Times are kept in UTC.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
