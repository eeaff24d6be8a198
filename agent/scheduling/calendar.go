package scheduling

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

const DateLayout = "2006-01-02"

var (
	ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	clockPattern  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)

	dateLayouts = []string{
		DateLayout,
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"2 January 2006",
		"2 Jan 2006",
	}
)

// ParseDate normalizes a calendar date to YYYY-MM-DD. today anchors the
// relative words "today" and "tomorrow"; a zero today rejects them.
func ParseDate(input string, today time.Time) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(input))
	if raw == "" {
		return "", &contractx.ValidationError{Missing: []string{"date"}}
	}

	switch raw {
	case "today", "tomorrow":
		if today.IsZero() {
			break
		}
		if raw == "tomorrow" {
			today = today.AddDate(0, 0, 1)
		}
		return today.Format(DateLayout), nil
	}

	cleaned := ordinalSuffix.ReplaceAllString(raw, "$1")
	cleaned = titleMonth(strings.Join(strings.Fields(cleaned), " "))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", &contractx.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a calendar date (use YYYY-MM-DD)", input)}
}

// ParseClock normalizes a time of day to 24-hour HH:MM.
func ParseClock(input string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(input))
	switch raw {
	case "":
		return "", &contractx.ValidationError{Missing: []string{"time"}}
	case "noon":
		return "12:00", nil
	}

	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", invalidClock(input)
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", invalidClock(input)
	}
	minute := 0
	if m[2] != "" {
		if minute, err = strconv.Atoi(m[2]); err != nil || minute > 59 {
			return "", invalidClock(input)
		}
	}

	switch strings.ReplaceAll(m[3], ".", "") {
	case "am":
		if hour < 1 || hour > 12 {
			return "", invalidClock(input)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", invalidClock(input)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return "", invalidClock(input)
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func invalidClock(input string) error {
	return &contractx.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not a time of day (use HH:MM)", input)}
}

// titleMonth restores the capitalised month names time.Parse expects.
func titleMonth(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" || w[0] < 'a' || w[0] > 'z' {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
