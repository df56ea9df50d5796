// Package schooldate resolves the date spellings users type into the
// 8-digit YYYYMMDD form the NEIS API expects.
package schooldate

import "time"

// Seoul timezone; every "today" in the service is anchored here.
var seoulTZ = loadSeoulTZ()

func loadSeoulTZ() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback to UTC+9 if timezone data is not available
		return time.FixedZone("Asia/Seoul", 9*60*60)
	}
	return loc
}

// SeoulLocation returns the Korea (Asia/Seoul) timezone location.
func SeoulLocation() *time.Location {
	return seoulTZ
}

// Today returns midnight of now's calendar day in Seoul.
func Today(now time.Time) time.Time {
	n := now.In(seoulTZ)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, seoulTZ)
}

// Compact formats t as YYYYMMDD.
func Compact(t time.Time) string {
	return t.Format("20060102")
}

// Long formats t as "2006년 01월 02일".
func Long(t time.Time) string {
	return t.Format("2006년 01월 02일")
}

var weekdayNames = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// WeekdayName returns the Korean name of t's weekday, e.g. "수요일".
func WeekdayName(t time.Time) string {
	return weekdayNames[t.Weekday()]
}
