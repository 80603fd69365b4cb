package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateRange is an inclusive range of whole days. Start and End are both
// midnight; End is the first instant of the last included day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of days covered.
func (r DateRange) Days() int {
	days := 1
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Until returns the exclusive upper bound, midnight after End.
func (r DateRange) Until() time.Time {
	return r.End.AddDate(0, 0, 1)
}

// String formats the range so ParseDateRange reads it back unchanged.
func (r DateRange) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.Format(isoDate)
	}
	return r.Start.Format(isoDate) + " to " + r.End.Format(isoDate)
}

const isoDate = "2006-01-02"

var (
	rangeSeparator = regexp.MustCompile(`(?i)^(.+?)\s+to\s+(.+)$`)
	ordinalSuffix  = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)

	// Day and month without a year: 8/31, 8-31, Oct 5, 5 Oct.
	yearlessNumeric  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	yearlessMonthDay = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2})$`)
	yearlessDayMonth = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?$`)
)

// ParseDateRange reads "<date> to <date>" or a single "<date>". The words
// yesterday, today and tomorrow are resolved against the midnight of now;
// any other date is handed to dateparse. A date without a year takes the
// year of now, and a yearless end that lands before the start moves into
// the following year, so "12/31 to 1/2" spans three days. Blank or
// unparseable input, and any other reversed range, yield ok == false.
func ParseDateRange(s string, now time.Time) (DateRange, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateRange{}, false
	}

	if m := rangeSeparator.FindStringSubmatch(s); m != nil {
		start, _, ok := parseDate(m[1], now)
		if !ok {
			return DateRange{}, false
		}
		end, yearless, ok := parseDate(m[2], now)
		if !ok {
			return DateRange{}, false
		}
		if end.Before(start) && yearless {
			end = end.AddDate(1, 0, 0)
		}
		if end.Before(start) {
			return DateRange{}, false
		}
		return DateRange{Start: start, End: end}, true
	}

	day, _, ok := parseDate(s, now)
	if !ok {
		return DateRange{}, false
	}
	return DateRange{Start: day, End: day}, true
}

// parseDate resolves one date to midnight in the location of now. yearless
// reports that the year was taken from now.
func parseDate(s string, now time.Time) (day time.Time, yearless bool, ok bool) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(s) {
	case "yesterday":
		return today.AddDate(0, 0, -1), false, true
	case "today":
		return today, false, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), false, true
	}

	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s, yearless = withYear(s, now.Year())

	t, err := dateparse.ParseIn(s, loc)
	if err != nil || t.Year() == 0 {
		return time.Time{}, false, false
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), yearless, true
}

// withYear appends year to a date written without one.
func withYear(s string, year int) (string, bool) {
	y := strconv.Itoa(year)
	if m := yearlessNumeric.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + m[2] + "/" + y, true
	}
	if m := yearlessMonthDay.FindStringSubmatch(s); m != nil {
		return m[1] + " " + m[2] + ", " + y, true
	}
	if m := yearlessDayMonth.FindStringSubmatch(s); m != nil {
		return m[1] + " " + m[2] + " " + y, true
	}
	return s, false
}
