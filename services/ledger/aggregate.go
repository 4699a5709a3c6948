package ledger

import (
	"time"

	"gwreport-backend/lib/timezone"
)

// Aggregate folds validated records into one bucket per calendar month
// of [start, end]. Months without records still get a zero-filled
// bucket, the series never has gaps. The fold is pure, running it
// twice on the same input produces identical output.
func Aggregate(records []ValidatedRecord, start, end time.Time) []MonthBucket {
	start = timezone.Day(start)
	end = timezone.Day(end)

	first := monthIndex(start.Year(), start.Month())
	last := monthIndex(end.Year(), end.Month())
	if last < first {
		return nil
	}

	buckets := make([]MonthBucket, last-first+1)
	for i := range buckets {
		year, month := monthAt(first + i)
		buckets[i] = MonthBucket{Year: year, Month: month}
	}

	for _, r := range records {
		idx := monthIndex(r.ClosedDate.Year(), r.ClosedDate.Month()) - first
		if idx < 0 || idx >= len(buckets) {
			continue
		}
		b := &buckets[idx]
		switch r.Kind {
		case KindSales:
			b.Revenue += r.Amount
		case KindPurchase:
			b.Cost += r.Amount
		}
		b.RecordCount++
	}

	for i := range buckets {
		buckets[i].Profit = buckets[i].Revenue - buckets[i].Cost
	}
	return buckets
}

// Summarize derives the cumulative, margin and growth series over
// chronologically ordered buckets. Division by zero is guarded: a
// month without revenue has margin 0, growth after a zero-profit
// month (and for the first month) is undefined.
func Summarize(buckets []MonthBucket) []MonthlySummary {
	summaries := make([]MonthlySummary, len(buckets))

	var cumulative int64
	for i, b := range buckets {
		cumulative += b.Profit

		s := MonthlySummary{
			MonthBucket:      b,
			CumulativeProfit: cumulative,
		}
		if b.Revenue != 0 {
			s.Margin = float64(b.Profit) / float64(b.Revenue)
		}
		if i > 0 {
			prior := buckets[i-1].Profit
			if prior != 0 {
				s.Growth = float64(b.Profit-prior) / abs(float64(prior))
				s.GrowthValid = true
			}
		}
		summaries[i] = s
	}

	return summaries
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

func monthAt(idx int) (int, time.Month) {
	return idx / 12, time.Month(idx%12 + 1)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
