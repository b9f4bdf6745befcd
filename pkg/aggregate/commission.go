package aggregate

import (
	"fmt"

	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/shopspring/decimal"
)

type View string

const (
	ViewDaily   View = "daily"
	ViewMonthly View = "monthly"
	ViewMonth   View = "month"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewDaily:
		return ViewDaily, nil
	case ViewMonthly, ViewMonth:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Select returns the records a commission view shows.
//
// ViewMonthly returns every record unfiltered: the monthly screen has never
// applied a month boundary and whether it should is still undecided. Callers
// wanting one calendar month use ViewMonth.
func Select[R Dated](records []R, view View, today calendar.Date, month calendar.Month) []R {
	switch view {
	case ViewDaily:
		return OnDay(records, today)
	case ViewMonth:
		return InMonth(records, month)
	default:
		return records
	}
}

type Summary[R any] struct {
	View    View            `json:"view"`
	Month   calendar.Month  `json:"month,omitzero"`
	Records []R             `json:"records"`
	Total   decimal.Decimal `json:"total"`
}

// Summarize selects the records for view and totals them.
func Summarize[R Dated](records []R, view View, today calendar.Date, month calendar.Month) Summary[R] {
	selected := Select(records, view, today, month)
	if selected == nil {
		selected = []R{}
	}
	s := Summary[R]{View: view, Records: selected, Total: Sum(selected)}
	if view == ViewMonth {
		s.Month = month
	}
	return s
}
