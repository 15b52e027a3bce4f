// Package period labels the reporting periods composite scores are keyed by.
package period

import (
	"fmt"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
)

const weekDays = 7

// Period is a labelled inclusive day range.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// Label names the period ending on end: the ISO week (YYYY-Www) for periods of
// a week or less, the calendar month (YYYY-MM) otherwise.
func Label(end time.Time, days int) string {
	end = end.UTC()
	if days <= weekDays {
		y, w := end.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	}
	return end.Format("2006-01")
}

// Current returns the period of days ending on asOf's calendar day.
func Current(asOf time.Time, days int) Period {
	if days < 1 {
		days = 1
	}
	end := model.Day(asOf)
	return Period{
		Label: Label(end, days),
		Start: end.AddDate(0, 0, -(days - 1)),
		End:   end,
	}
}

// Previous returns the period immediately preceding p in the unit its label
// names: the week before for weekly labels, otherwise the period ending on the
// last day of the previous month.
func Previous(p Period, days int) Period {
	if days < 1 {
		days = 1
	}
	end := model.Day(p.End)
	if days <= weekDays {
		return Current(end.AddDate(0, 0, -weekDays), days)
	}
	// Day 0 of a month is the last day of the month before.
	return Current(time.Date(end.Year(), end.Month(), 0, 0, 0, 0, 0, time.UTC), days)
}
