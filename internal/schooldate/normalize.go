package schooldate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	compactPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	isoPattern     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	shortPattern   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	longPattern    = regexp.MustCompile(`^(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일$`)
)

// NormalizeToken converts one date token to YYYYMMDD. Accepted spellings:
//
//	20251225, 2025-12-25, 12-25 (anchor's year), 2025년 12월 25일,
//	and a single relative expression such as 내일 or 다음주 월요일.
//
// ok is false when the token is not a date or names an impossible day;
// no best-guess date is ever returned.
func NormalizeToken(tok string, anchor time.Time) (string, bool) {
	tok = strings.TrimSpace(norm.NFC.String(tok))
	if tok == "" {
		return "", false
	}

	if m := compactPattern.FindStringSubmatch(tok); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := isoPattern.FindStringSubmatch(tok); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := shortPattern.FindStringSubmatch(tok); m != nil {
		return build(strconv.Itoa(Today(anchor).Year()), m[1], m[2])
	}

	long := tok
	if !longPattern.MatchString(long) {
		long = strings.TrimSpace(RewriteRelative(tok, anchor))
	}
	if m := longPattern.FindStringSubmatch(long); m != nil {
		return build(m[1], m[2], m[3])
	}
	return "", false
}

// build validates the calendar date and returns it zero-padded.
func build(year, month, day string) (string, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(mo) {
		return "", false
	}
	return Compact(t), true
}
