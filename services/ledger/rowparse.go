package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gwreport-backend/lib/timezone"
)

var (
	ErrShortRow    = errors.New("row has fewer cells than any known layout")
	ErrKindParse   = errors.New("document kind could not be resolved")
	ErrDateParse   = errors.New("date text matched no accepted format")
	ErrAmountParse = errors.New("no numeral recognized in amount cell")
)

// ColumnLayout maps record fields to cell positions in a listing row.
type ColumnLayout struct {
	DocumentID int
	Kind       int
	Date       int
	Amount     int
	Status     int
}

func (l ColumnLayout) fits(cells int) bool {
	for _, idx := range []int{l.DocumentID, l.Kind, l.Date, l.Amount, l.Status} {
		if idx < 0 || idx >= cells {
			return false
		}
	}
	return true
}

type ParseConfig struct {
	// candidate layouts, tried in order per row
	Layouts []ColumnLayout
	// accepted date formats, tried in order. a format without a year
	// ("01-02") resolves against ReferenceYear.
	DateFormats   []string
	ReferenceYear int
	// substrings that mark a row as sales / purchase
	SalesTokens    []string
	PurchaseTokens []string
}

// ParseRow turns one raw listing row into a candidate record. Failures
// are typed and never fatal to the pipeline, callers record the reason
// and drop the row.
func ParseRow(row RawRow, cfg ParseConfig) (CandidateRecord, error) {
	sawShortOnly := true
	for _, layout := range cfg.Layouts {
		if !layout.fits(len(row.Cells)) {
			continue
		}
		sawShortOnly = false

		kind := resolveKind(row.Cells[layout.Kind], cfg)
		if kind == KindUnknown {
			continue
		}

		amount, err := parseAmount(row.Cells[layout.Amount])
		if err != nil {
			return CandidateRecord{}, err
		}
		closed, err := parseDate(row.Cells[layout.Date], cfg)
		if err != nil {
			return CandidateRecord{}, err
		}

		return CandidateRecord{
			DocumentID: strings.TrimSpace(row.Cells[layout.DocumentID]),
			Kind:       kind,
			ClosedDate: closed,
			Amount:     amount,
			Status:     strings.TrimSpace(row.Cells[layout.Status]),
			RawSource:  row.Cells,
		}, nil
	}

	if sawShortOnly {
		return CandidateRecord{}, fmt.Errorf("%w: %d cells", ErrShortRow, len(row.Cells))
	}
	return CandidateRecord{}, ErrKindParse
}

func resolveKind(cell string, cfg ParseConfig) DocumentKind {
	for _, token := range cfg.SalesTokens {
		if strings.Contains(cell, token) {
			return KindSales
		}
	}
	for _, token := range cfg.PurchaseTokens {
		if strings.Contains(cell, token) {
			return KindPurchase
		}
	}
	return KindUnknown
}

var nonNumeral = regexp.MustCompile(`[^0-9,]`)

// parseAmount strips currency symbols and thousands separators and
// parses what remains.
func parseAmount(cell string) (int64, error) {
	cleaned := nonNumeral.ReplaceAllString(cell, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrAmountParse, cell)
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountParse, cell)
	}
	return n, nil
}

// the listing appends a weekday to dates, e.g. "10-17 (금)"
var weekdaySuffix = regexp.MustCompile(`\s*\([^)]*\)`)

func parseDate(cell string, cfg ParseConfig) (time.Time, error) {
	cleaned := strings.TrimSpace(weekdaySuffix.ReplaceAllString(cell, ""))

	for _, format := range cfg.DateFormats {
		t, err := time.ParseInLocation(format, cleaned, timezone.Location)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			// year-less listing format, resolved against the
			// requested range
			t = timezone.Date(cfg.ReferenceYear, t.Month(), t.Day())
		}
		return timezone.Day(t), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, cell)
}
