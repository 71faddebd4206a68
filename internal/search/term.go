package search

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// TermForDate maps a calendar date to an academic-term label of the form
// "<Term> <Year>", or "" when the input is missing or unparseable. Bare
// `YYYY-MM-DD` strings are read as local calendar fields so the label never
// shifts across a timezone boundary.
func TermForDate(raw string) string {
	if raw == "" {
		return ""
	}

	var year, month, day int
	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return ""
		}
	} else {
		t, err := parseLoose(raw)
		if err != nil {
			return ""
		}
		year, month, day = t.Year(), int(t.Month()), t.Day()
	}

	return termLabel(year, month, day)
}

// TermForTime classifies an already-parsed time.
func TermForTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return termLabel(t.Year(), int(t.Month()), t.Day())
}

// termLabel buckets (month, day) into Winter/Spring/Summer/Fall. Winter wraps
// into the following January's year: December dates carry year+1.
func termLabel(year, month, day int) string {
	switch {
	case (month == 12 && day >= 15) || (month == 1 && day <= 20):
		if month == 12 {
			year++
		}
		return fmt.Sprintf("Winter %d", year)
	case (month == 1 && day >= 21) || month == 2 || month == 3 || month == 4 || (month == 5 && day <= 20):
		return fmt.Sprintf("Spring %d", year)
	case (month == 5 && day >= 21) || month == 6 || month == 7 || (month == 8 && day <= 20):
		return fmt.Sprintf("Summer %d", year)
	default:
		return fmt.Sprintf("Fall %d", year)
	}
}

func parseLoose(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"01/02/2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", raw)
}
