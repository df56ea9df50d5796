package neis

import (
	"context"
	"errors"
	"fmt"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
)

// Query runs req against NEIS and returns the display lines.
//
// Dates are fetched one after another, in request order, and every date
// contributes at least one line. A date whose upstream call fails gets the
// kind's placeholder line; the failures are returned joined alongside the
// lines so the caller can report a partial result.
func (c *Client) Query(ctx context.Context, req QueryRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Kind == KindSchoolInfo {
		body, err := c.fetch(ctx, call{kind: KindSchoolInfo})
		if err != nil && !errors.Is(err, domerrors.ErrNoData) {
			return nil, fmt.Errorf("school info: %w", err)
		}
		return schoolInfoLines(body, req.Field), nil
	}

	var (
		lines []string
		errs  []error
	)
	for _, date := range req.Dates {
		body, err := c.fetch(ctx, call{
			kind:        req.Kind,
			date:        date,
			grade:       req.Grade,
			classNumber: req.ClassNumber,
		})
		if err != nil {
			body = nil
			if !errors.Is(err, domerrors.ErrNoData) {
				c.log.WithError(err).
					WithField("kind", string(req.Kind)).
					WithField("date", date).
					Warn("NEIS request failed")
				errs = append(errs, fmt.Errorf("%s: %w", date, err))
			}
		}
		lines = append(lines, formatLines(req.Kind, date, body)...)
	}

	return lines, errors.Join(errs...)
}

func formatLines(kind Kind, date string, body []byte) []string {
	switch kind {
	case KindMeal:
		return mealLines(date, body)
	case KindTimetable:
		return timetableLines(date, body)
	case KindCalendar:
		return calendarLines(date, body)
	default:
		return nil
	}
}
