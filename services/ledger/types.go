package ledger

import (
	"context"
	"time"
)

// PageFetcher is the authenticated page-access capability. Page
// indices start at 1; implementations classify failures with
// amaranth.ErrAccessTimeout / amaranth.ErrAccessDenied.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

type DocumentKind int

const (
	KindUnknown DocumentKind = iota
	KindSales
	KindPurchase
)

func (k DocumentKind) String() string {
	switch k {
	case KindSales:
		return "sales"
	case KindPurchase:
		return "purchase"
	}
	return "unknown"
}

// RawRow is one scraped listing row. It carries no identity and is
// discarded after parsing.
type RawRow struct {
	Page  int
	Index int
	Cells []string
}

type CandidateRecord struct {
	DocumentID string
	Kind       DocumentKind
	ClosedDate time.Time
	// amounts are whole KRW
	Amount int64
	Status string
	// original cell text, kept for diagnostics only
	RawSource []string
}

// ValidatedRecord is a CandidateRecord that passed every validation
// rule. Immutable once produced.
type ValidatedRecord struct {
	CandidateRecord
}

type MonthBucket struct {
	Year        int
	Month       time.Month
	Revenue     int64
	Cost        int64
	Profit      int64
	RecordCount int
}

// MonthlySummary is the derived read-only view over an ordered bucket
// sequence.
type MonthlySummary struct {
	MonthBucket
	CumulativeProfit int64
	// profit over revenue, 0 when the month had no revenue
	Margin float64
	// month-over-month relative profit change, only meaningful
	// when GrowthValid is set (prior profit of 0 leaves it undefined)
	Growth      float64
	GrowthValid bool
}

type Result struct {
	Records   []ValidatedRecord
	Buckets   []MonthBucket
	Summaries []MonthlySummary
	Report    ExtractionReport
}
