// Package stats turns filtered transaction lists into bucketed summaries.
// Every function here is pure: no I/O, deterministic output, and an empty
// input always yields an empty result.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TimeBucket is one aggregation group keyed by a period label: an ISO date,
// a weekday name or a month name. Transfers never contribute to either sum.
type TimeBucket struct {
	Key     string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategorySummary holds per-category income and expense totals.
type CategorySummary struct {
	CategoryID string          `json:"categoryId"`
	Category   string          `json:"category"`
	Incomes    decimal.Decimal `json:"incomes"`
	Expenses   decimal.Decimal `json:"expenses"`
}

const dayKeyFormat = "2006-01-02"

// BucketByDay groups transactions by calendar date (UTC) and sums income
// and expense amounts per date. Grouping is by full date key, so same-day
// transactions collapse into one bucket regardless of input order. Buckets
// are returned in ascending date order.
func BucketByDay(transactions []core.Transaction) []TimeBucket {
	return bucket(transactions, func(t core.Transaction) string {
		return t.Date.UTC().Format(dayKeyFormat)
	}, nil)
}

// BucketByWeekday groups by weekday name, ordered Monday through Sunday.
func BucketByWeekday(transactions []core.Transaction) []TimeBucket {
	order := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	return bucket(transactions, func(t core.Transaction) string {
		return t.Date.UTC().Weekday().String()
	}, order)
}

// BucketByMonth groups by month name, ordered January through December.
func BucketByMonth(transactions []core.Transaction) []TimeBucket {
	order := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		order = append(order, m.String())
	}
	return bucket(transactions, func(t core.Transaction) string {
		return t.Date.UTC().Month().String()
	}, order)
}

// BucketByTimeframe picks the grouping granularity the given timeframe is
// reported at: weekday buckets for a week, day buckets for a month, month
// buckets for a year. Callers filter the input to the timeframe's range
// first (see RangeForTimeframe).
func BucketByTimeframe(transactions []core.Transaction, tf core.Timeframe) ([]TimeBucket, error) {
	switch tf {
	case core.TimeframeWeek:
		return BucketByWeekday(transactions), nil
	case core.TimeframeMonth:
		return BucketByDay(transactions), nil
	case core.TimeframeYear:
		return BucketByMonth(transactions), nil
	}
	return nil, core.ErrInvalidTimeframe
}

// bucket performs full grouping by key. When order is non-nil it fixes the
// output sequence (only keys that occur appear); otherwise buckets sort
// lexicographically by key, which for ISO dates is chronological.
func bucket(transactions []core.Transaction, keyOf func(core.Transaction) string, order []string) []TimeBucket {
	groups := make(map[string]*TimeBucket)
	for _, t := range transactions {
		key := keyOf(t)
		b, ok := groups[key]
		if !ok {
			b = &TimeBucket{Key: key, Income: decimal.Zero, Expense: decimal.Zero}
			groups[key] = b
		}
		switch t.Type {
		case core.Income:
			b.Income = b.Income.Add(t.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(t.Amount)
		}
	}

	out := make([]TimeBucket, 0, len(groups))
	if order != nil {
		for _, key := range order {
			if b, ok := groups[key]; ok {
				out = append(out, *b)
			}
		}
		return out
	}
	for _, b := range groups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// AverageByCategory sums incomes and expenses per category. Transactions
// without a category are excluded. categoryNames resolves display names
// and may be nil. Output is ordered by category name, then id.
func AverageByCategory(transactions []core.Transaction, categoryNames map[string]string) []CategorySummary {
	groups := make(map[string]*CategorySummary)
	for _, t := range transactions {
		if t.CategoryID == "" {
			continue
		}
		s, ok := groups[t.CategoryID]
		if !ok {
			s = &CategorySummary{
				CategoryID: t.CategoryID,
				Category:   categoryNames[t.CategoryID],
				Incomes:    decimal.Zero,
				Expenses:   decimal.Zero,
			}
			groups[t.CategoryID] = s
		}
		switch t.Type {
		case core.Income:
			s.Incomes = s.Incomes.Add(t.Amount)
		case core.Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}

	out := make([]CategorySummary, 0, len(groups))
	for _, s := range groups {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// GroupByType splits transactions into one slice per transaction type,
// preserving input order within each group.
func GroupByType(transactions []core.Transaction) map[core.TxType][]core.Transaction {
	out := make(map[core.TxType][]core.Transaction)
	for _, t := range transactions {
		out[t.Type] = append(out[t.Type], t)
	}
	return out
}
