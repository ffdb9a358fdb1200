// Package report extracts structured fields from the free text of one
// climate bulletin.
//
// Bulletins are operator-authored; every field may be absent or malformed.
// Extraction therefore degrades field by field to zero values and never
// returns an error for a field it cannot read.
package report

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	locationRe  = regexp.MustCompile(`\.\.\.THE\s+(.+?)\s+CLIMATE\s+SUMMARY`)
	issueDateRe = regexp.MustCompile(`FOR\s+(\w+\s+\d{1,2}\s+\d{4})`)
	validAsOfRe = regexp.MustCompile(`(?i)VALID\s+(?:TODAY\s+)?AS\s+OF\s+(\d{4}\s+(?:AM|PM)(?:\s+LOCAL\s+TIME)?)`)
	reportedRe  = regexp.MustCompile(`(\d{3,4}\s+(?:AM|PM)\s+[A-Z]{3}\s+(?:[A-Z]{3}\s+)?\w{3}\s+\d{1,2}\s+\d{4})`)
	maxTempRe   = regexp.MustCompile(`MAXIMUM\s+(\d+)\s+(\d{1,4}\s+(?:A|P)M)`)
	timezoneRe  = regexp.MustCompile(`\b([CE]DT|EST)\b`)
)

// zoneNames maps bulletin timezone abbreviations to IANA zone names.
var zoneNames = map[string]string{
	"EDT": "America/New_York",
	"EST": "America/New_York",
	"CDT": "America/Chicago",
}

const defaultZone = "America/New_York"

// Time layouts for bulletin timestamps. The primary layout combines the issue
// date with a bare clock time; the fallback covers the self-contained report
// timestamp line. A value matching neither stays zero.
const (
	dateLayout     = "January 2 2006"
	clockLayout    = "304 PM"
	combinedLayout = dateLayout + " " + clockLayout
	reportedLayout = "304 PM MST Mon Jan 2 2006"
)

// Temperature is an observed extreme and when it occurred.
type Temperature struct {
	Value      int
	ObservedAt time.Time
	Valid      bool
}

// Summary holds the structured fields of one bulletin.
type Summary struct {
	Location   string
	IssueDate  string
	ValidAsOf  time.Time
	ReportedAt time.Time
	MaxTemp    Temperature
	Timezone   string
}

// Extract parses one bulletin's raw text into a Summary.
func Extract(text string) Summary {
	s := Summary{Location: "Unknown Location", Timezone: "Unknown"}

	if m := locationRe.FindStringSubmatch(text); m != nil {
		s.Location = m[1]
	}
	if m := issueDateRe.FindStringSubmatch(text); m != nil {
		s.IssueDate = m[1]
	}
	if m := timezoneRe.FindStringSubmatch(text); m != nil {
		s.Timezone = m[1]
	}

	loc := location(s.Timezone)

	if m := validAsOfRe.FindStringSubmatch(text); m != nil {
		s.ValidAsOf = normalize(m[1], s.IssueDate, loc)
	}
	if m := reportedRe.FindStringSubmatch(text); m != nil {
		s.ReportedAt = normalize(m[1], s.IssueDate, loc)
	}
	if m := maxTempRe.FindStringSubmatch(text); m != nil {
		value, err := strconv.Atoi(m[1])
		if err == nil {
			s.MaxTemp = Temperature{
				Value:      value,
				ObservedAt: normalize(m[2], s.IssueDate, loc),
				Valid:      true,
			}
		}
	}

	return s
}

// location resolves a bulletin timezone abbreviation to a *time.Location.
func location(abbrev string) *time.Location {
	name, ok := zoneNames[abbrev]
	if !ok {
		name = defaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalize converts a bulletin clock time to a zoned timestamp. The primary
// interpretation joins the issue date with the clock time; if that fails, the
// string is tried as a self-contained report timestamp. On any mismatch the
// zero time is returned.
func normalize(clock, issueDate string, loc *time.Location) time.Time {
	clock = strings.TrimSpace(strings.ReplaceAll(clock, "LOCAL TIME", ""))

	if issueDate != "" {
		if t, err := time.ParseInLocation(combinedLayout, issueDate+" "+clock, loc); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(reportedLayout, clock, loc); err == nil {
		return t
	}
	return time.Time{}
}

// ISO renders a timestamp in ISO-8601 with the zone offset, or "" for the
// zero time.
func ISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}
