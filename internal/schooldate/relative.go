package schooldate

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// dayWords are applied in order. 내일모레 must precede 내일.
var dayWords = []struct {
	word   string
	offset int
}{
	{"내일모레", 2},
	{"내일", 1},
	{"모레", 2},
	{"어제", -1},
}

var weekPattern = regexp.MustCompile(`(이번|다음)\s*주\s*([일월화수목금토])요일`)

var weekdayOffsets = map[string]int{
	"일": 0, "월": 1, "화": 2, "수": 3, "목": 4, "금": 5, "토": 6,
}

// WeekStart returns the Sunday that starts anchor's week (anchor itself on Sundays).
func WeekStart(anchor time.Time) time.Time {
	d := Today(anchor)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// RewriteRelative replaces every recognized relative expression in text with
// the long form of the date it denotes, anchored at anchor's Seoul day.
// Unrecognized text is returned unchanged (apart from NFC normalization).
func RewriteRelative(text string, anchor time.Time) string {
	today := Today(anchor)
	out := norm.NFC.String(text)

	for _, w := range dayWords {
		if strings.Contains(out, w.word) {
			out = strings.ReplaceAll(out, w.word, Long(today.AddDate(0, 0, w.offset)))
		}
	}

	start := WeekStart(today)
	return weekPattern.ReplaceAllStringFunc(out, func(m string) string {
		sub := weekPattern.FindStringSubmatch(m)
		days := weekdayOffsets[sub[2]]
		if sub[1] == "다음" {
			days += 7
		}
		return Long(start.AddDate(0, 0, days))
	})
}
