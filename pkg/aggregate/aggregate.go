// Package aggregate folds dated amounts into day and month buckets.
package aggregate

import (
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/shopspring/decimal"
)

// Dated is a record that contributes an amount to a calendar day.
// A record whose amount was never set contributes zero.
type Dated interface {
	Day() calendar.Date
	Value() decimal.Decimal
}

type DayTotal struct {
	Day   calendar.Date   `json:"day"`
	Total decimal.Decimal `json:"total"`
}

type MonthTotal struct {
	Month calendar.Month  `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// Sum adds every record's amount.
func Sum[R Dated](records []R) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}

// DailyTotal sums the records dated on day.
func DailyTotal[R Dated](records []R, day calendar.Date) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Day().Equal(day) {
			total = total.Add(r.Value())
		}
	}
	return total
}

// UniqueDays lists each distinct day once, in order of first occurrence.
func UniqueDays[R Dated](records []R) []calendar.Date {
	seen := make(map[calendar.Date]bool)
	var days []calendar.Date
	for _, r := range records {
		d := r.Day()
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days
}

// DailyTotals returns one bucket per distinct day, in order of first occurrence.
func DailyTotals[R Dated](records []R) []DayTotal {
	index := make(map[calendar.Date]int)
	var totals []DayTotal
	for _, r := range records {
		d := r.Day()
		i, ok := index[d]
		if !ok {
			i = len(totals)
			index[d] = i
			totals = append(totals, DayTotal{Day: d, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(r.Value())
	}
	return totals
}

// MonthlyTotals returns one bucket per distinct month. Buckets keep the order
// in which each month first appears in records, not calendar order.
func MonthlyTotals[R Dated](records []R) []MonthTotal {
	index := make(map[calendar.Month]int)
	var totals []MonthTotal
	for _, r := range records {
		m := r.Day().YearMonth()
		i, ok := index[m]
		if !ok {
			i = len(totals)
			index[m] = i
			totals = append(totals, MonthTotal{Month: m, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(r.Value())
	}
	return totals
}

// OnDay keeps the records dated on day.
func OnDay[R Dated](records []R, day calendar.Date) []R {
	var out []R
	for _, r := range records {
		if r.Day().Equal(day) {
			out = append(out, r)
		}
	}
	return out
}

// InMonth keeps the records dated within m.
func InMonth[R Dated](records []R, m calendar.Month) []R {
	var out []R
	for _, r := range records {
		if m.Contains(r.Day()) {
			out = append(out, r)
		}
	}
	return out
}

// Profit is the sum of (salePrice - purchasePrice) * soldQuantity.
func Profit(products []*models.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.SalePrice.Sub(p.PurchasePrice).Mul(p.SoldQuantity))
	}
	return total
}

// Totals is the footer of an expense list.
type Totals struct {
	Day      calendar.Date   `json:"day"`
	DayTotal decimal.Decimal `json:"dayTotal"`
	Daily    []DayTotal      `json:"daily"`
	Monthly  []MonthTotal    `json:"monthly"`
}

// TotalsFor computes the day total for day alongside the per-day and
// per-month breakdowns.
func TotalsFor[R Dated](records []R, day calendar.Date) Totals {
	t := Totals{
		Day:      day,
		DayTotal: DailyTotal(records, day),
		Daily:    DailyTotals(records),
		Monthly:  MonthlyTotals(records),
	}
	if t.Daily == nil {
		t.Daily = []DayTotal{}
	}
	if t.Monthly == nil {
		t.Monthly = []MonthTotal{}
	}
	return t
}
