package neis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Placeholders used when a value is missing.
const (
	noInfo        = "정보 없음"
	noEvent       = "일정 없음"
	noTimetable   = "시간표 정보 없음"
	noSchoolName  = "학교명 없음"
	noAddress     = "주소 없음"
	noPhoneNumber = "전화번호 없음"
)

func rowsPath(endpointName string) string {
	return endpointName + ".1.row"
}

func firstRowValue(body []byte, endpointName, field string) gjson.Result {
	return gjson.GetBytes(body, rowsPath(endpointName)+".0."+field)
}

func stringOr(r gjson.Result, fallback string) string {
	if s := strings.TrimSpace(r.String()); r.Exists() && s != "" {
		return s
	}
	return fallback
}

// mealLines formats one day's menu. NEIS separates dishes with <br/>.
func mealLines(date string, body []byte) []string {
	meal := noInfo
	if body != nil {
		meal = stringOr(firstRowValue(body, endpoints[KindMeal].name, "DDISH_NM"), noInfo)
	}
	meal = strings.ReplaceAll(meal, "<br/>", ", ")
	return []string{fmt.Sprintf("%s : 급식 %s", date, meal)}
}

// timetableLines formats one day's periods in PERIO order, numbered from 1.
func timetableLines(date string, body []byte) []string {
	var rows []gjson.Result
	if body != nil {
		rows = gjson.GetBytes(body, rowsPath(endpoints[KindTimetable].name)).Array()
	}
	if len(rows) == 0 {
		return []string{fmt.Sprintf("%s : %s", date, noTimetable)}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Get("PERIO").Int() < rows[j].Get("PERIO").Int()
	})

	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		subject := stringOr(row.Get("ITRT_CNTNT"), noInfo)
		lines = append(lines, fmt.Sprintf("%s : %d교시 %s", date, i+1, subject))
	}
	return lines
}

// calendarLines formats one day's academic calendar event.
func calendarLines(date string, body []byte) []string {
	event := noEvent
	if body != nil {
		event = stringOr(firstRowValue(body, endpoints[KindCalendar].name, "EVENT_NM"), noEvent)
	}
	return []string{fmt.Sprintf("%s : 일정 %s", date, event)}
}

// schoolInfoLines formats either one requested field or the default
// name/address/phone summary. requested is the caller's wording, used as the
// label when it did not resolve to a field.
func schoolInfoLines(body []byte, requested string) []string {
	name := endpoints[KindSchoolInfo].name
	value := func(code, fallback string) string {
		if body == nil {
			return fallback
		}
		return stringOr(firstRowValue(body, name, code), fallback)
	}

	if requested = strings.TrimSpace(requested); requested != "" {
		f, ok := LookupField(requested)
		if !ok {
			return []string{fmt.Sprintf("학교 정보 - %s: %s", requested, noInfo)}
		}
		return []string{fmt.Sprintf("학교 정보 - %s: %s", f.Label, value(f.Code, noInfo))}
	}

	return []string{
		"학교명: " + value("SCHUL_NM", noSchoolName),
		"주소: " + value("ORG_RDNMA", noAddress),
		"전화번호: " + value("ORG_TELNO", noPhoneNumber),
	}
}
