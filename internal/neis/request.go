package neis

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
)

var compactDate = regexp.MustCompile(`^\d{8}$`)

// QueryRequest is a validated request for one kind of data.
// Dates are already normalized to YYYYMMDD.
type QueryRequest struct {
	Kind        Kind
	Dates       []string
	Grade       *int
	ClassNumber *int
	Field       string // school_info only: label or field code
}

// Validate checks the request invariants: school_info carries no dates,
// every other kind carries at least one real calendar date.
func (r QueryRequest) Validate() error {
	if _, ok := endpoints[r.Kind]; !ok {
		return fmt.Errorf("%w: %q", domerrors.ErrUnsupportedKind, string(r.Kind))
	}
	if !r.Kind.NeedsDate() {
		if len(r.Dates) > 0 {
			return domerrors.NewValidationError("date", "school_info takes no date")
		}
		return nil
	}
	if len(r.Dates) == 0 {
		return domerrors.NewValidationError("date", "at least one date is required")
	}
	for _, d := range r.Dates {
		if !isCalendarDate(d) {
			return domerrors.NewDateError(d)
		}
	}
	if r.Grade != nil && *r.Grade < 1 {
		return domerrors.NewValidationError("grade", "must be positive")
	}
	if r.ClassNumber != nil && *r.ClassNumber < 1 {
		return domerrors.NewValidationError("class_number", "must be positive")
	}
	return nil
}

func isCalendarDate(s string) bool {
	if !compactDate.MatchString(s) {
		return false
	}
	t, err := time.Parse("20060102", s)
	return err == nil && t.Format("20060102") == s
}

// call is a single upstream request.
type call struct {
	kind        Kind
	date        string
	grade       *int
	classNumber *int
}

func (c call) params() map[string]string {
	ep := endpoints[c.kind]
	p := map[string]string{"pSize": strconv.Itoa(ep.pageSize)}
	if ep.dateParam != "" {
		p[ep.dateParam] = c.date
	}
	if c.kind == KindTimetable {
		if c.grade != nil {
			p["GRADE"] = strconv.Itoa(*c.grade)
		}
		if c.classNumber != nil {
			p["CLASS_NM"] = strconv.Itoa(*c.classNumber)
		}
	}
	return p
}
