// Package neis is the adapter for the NEIS open-data API
// (https://open.neis.go.kr/hub/). It builds one upstream call per date,
// extracts the fields the chatbot needs and formats them as display lines.
package neis

import (
	"fmt"
	"strings"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
)

// Kind names one of the four data endpoints.
type Kind string

const (
	KindMeal       Kind = "meal"
	KindTimetable  Kind = "timetable"
	KindCalendar   Kind = "calendar"
	KindSchoolInfo Kind = "school_info"
)

// kindAliases maps the call names older prompts used.
var kindAliases = map[string]Kind{
	"lunch":    KindMeal,
	"schedule": KindTimetable,
	"year_sch": KindCalendar,
	"inform":   KindSchoolInfo,
}

// endpoint describes one NEIS dataset.
type endpoint struct {
	name      string // path segment and top-level JSON key
	dateParam string // empty for date-independent datasets
	pageSize  int
}

var endpoints = map[Kind]endpoint{
	KindMeal:       {name: "mealServiceDietInfo", dateParam: "MLSV_YMD", pageSize: 1},
	KindTimetable:  {name: "hisTimetable", dateParam: "ALL_TI_YMD", pageSize: 20},
	KindCalendar:   {name: "SchoolSchedule", dateParam: "AA_YMD", pageSize: 1},
	KindSchoolInfo: {name: "schoolInfo", pageSize: 10},
}

// Kinds returns the supported kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindMeal, KindTimetable, KindCalendar, KindSchoolInfo}
}

// ParseKind resolves a kind name or legacy alias.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	k := Kind(name)
	if _, ok := endpoints[k]; ok {
		return k, nil
	}
	if alias, ok := kindAliases[name]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", domerrors.ErrUnsupportedKind, s)
}

// NeedsDate reports whether queries of this kind are made per date.
func (k Kind) NeedsDate() bool {
	return endpoints[k].dateParam != ""
}

// Endpoint returns the NEIS dataset name for k, or "" if k is unknown.
func (k Kind) Endpoint() string {
	return endpoints[k].name
}

func (k Kind) String() string {
	return string(k)
}
