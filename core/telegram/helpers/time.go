package helpers

import (
	"strings"
	"time"
)

// Deadlines are usually typed as "24.12"; the year defaults to the
// current one when omitted.
var flexibleDateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01",
	"2.1",
	"2006-01-02",
	"2006-1-2",
}

// ParseFlexibleDate tries the date formats users type into Telegram flows.
// It returns the parsed time in the local timezone and true on success.
func ParseFlexibleDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range flexibleDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(time.Now().Year(), 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}
