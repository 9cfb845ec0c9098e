package ticket

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const protocolDateLayout = "20060102"

// NewProtocol returns a protocol number like 20240315-A1B2C3: the filing date
// (UTC) followed by 6 random hex digits.
func NewProtocol(now time.Time) string {
	id := uuid.New()
	return now.UTC().Format(protocolDateLayout) + "-" + strings.ToUpper(hex.EncodeToString(id[:3]))
}

// ValidProtocol reports whether `s` looks like a protocol number.
func ValidProtocol(s string) bool {
	if len(s) != len(protocolDateLayout)+7 || s[len(protocolDateLayout)] != '-' {
		return false
	}
	if _, err := time.Parse(protocolDateLayout, s[:len(protocolDateLayout)]); err != nil {
		return false
	}
	for _, r := range s[len(protocolDateLayout)+1:] {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddBusinessDays returns `t` moved forward by `days` days, weekends skipped.
func AddBusinessDays(t time.Time, days int) time.Time {
	for days > 0 {
		t = t.AddDate(0, 0, 1)
		if !isWeekend(t) {
			days--
		}
	}
	return t
}

// BusinessDaysBetween counts the weekdays in (from, to], comparing calendar dates.
func BusinessDaysBetween(from, to time.Time) int {
	from = truncateDay(from)
	to = truncateDay(to)
	var n int
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
