package invoice

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-categorizer/internal/categorize"
)

// CategoryCounts holds one count per category, in canonical category order
type CategoryCounts []CategoryCount

// Count returns the count for a category
func (c CategoryCounts) Count(category categorize.Category) int {
	for _, cc := range c {
		if cc.Category == category {
			return cc.Count
		}
	}
	return 0
}

// Total returns the sum of all counts
func (c CategoryCounts) Total() int {
	total := 0
	for _, cc := range c {
		total += cc.Count
	}
	return total
}

// Map returns the counts keyed by category
func (c CategoryCounts) Map() map[categorize.Category]int {
	m := make(map[categorize.Category]int, len(c))
	for _, cc := range c {
		m[cc.Category] = cc.Count
	}
	return m
}

// Aggregate counts records per category. Every category appears in the
// result, with zero for categories that have no records.
func Aggregate(records []LineRecord) CategoryCounts {
	cats := categorize.Categories()
	counts := make(CategoryCounts, len(cats))
	for i, c := range cats {
		counts[i].Category = c
	}
	for _, r := range records {
		if i := r.Category.Index(); i >= 0 {
			counts[i].Count++
		}
	}
	return counts
}

// Totals sums the amounts joined to records per category, zero-filled and in
// canonical order
func Totals(records []LineRecord) []CategoryTotal {
	cats := categorize.Categories()
	totals := make([]CategoryTotal, len(cats))
	for i, c := range cats {
		totals[i] = CategoryTotal{Category: c, Amount: decimal.Zero}
	}
	for _, r := range records {
		if r.Amount == nil {
			continue
		}
		if i := r.Category.Index(); i >= 0 {
			totals[i].Amount = totals[i].Amount.Add(*r.Amount)
		}
	}
	return totals
}

// NewSummary aggregates the records of docs into a Summary
func NewSummary(docs []Document) Summary {
	var agg Aggregator
	for _, d := range docs {
		agg.Add(d.Records...)
	}
	r := agg.Report()
	r.Documents = len(docs)
	return r
}

// Aggregator collects records as documents are processed. It is safe for
// concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	records []LineRecord
}

// Add appends records
func (a *Aggregator) Add(records ...LineRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, records...)
}

// Records returns a copy of the collected records in arrival order
func (a *Aggregator) Records() []LineRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]LineRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Counts aggregates the collected records
func (a *Aggregator) Counts() CategoryCounts {
	return Aggregate(a.Records())
}

// Report aggregates counts and totals of the collected records. Documents is
// left for the caller to fill in.
func (a *Aggregator) Report() Summary {
	records := a.Records()
	return Summary{
		Counts: Aggregate(records),
		Totals: Totals(records),
		Lines:  len(records),
	}
}
