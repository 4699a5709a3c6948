package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/ledger")

var (
	ErrEmptyRange    = errors.New("date range is empty")
	ErrInvertedRange = errors.New("date range start is after its end")
)

type Config struct {
	Start time.Time
	End   time.Time

	Crawl CrawlConfig
	Parse ParseConfig
	// terminal-approval status tokens
	ClosedTokens []string
}

// DefaultConfig carries the selector/parser candidates known to work
// against the groupware's listing.
func DefaultConfig(start, end time.Time) Config {
	return Config{
		Start: start,
		End:   end,
		Crawl: CrawlConfig{
			Selectors: []string{
				"ul.tableBody",
				"table.listTable tbody",
				"div.docList table",
			},
			MaxPages:   200,
			RetryLimit: 3,
			RetryBase:  time.Millisecond * 500,
		},
		Parse: ParseConfig{
			Layouts: []ColumnLayout{
				{Date: 0, DocumentID: 1, Kind: 2, Status: 3, Amount: 4},
				{Date: 1, DocumentID: 2, Kind: 3, Status: 4, Amount: 5},
			},
			DateFormats: []string{
				"2006-01-02",
				"2006.01.02",
				"2006/01/02",
				"01-02",
			},
			ReferenceYear:  end.Year(),
			SalesTokens:    []string{"매출"},
			PurchaseTokens: []string{"매입"},
		},
		ClosedTokens: []string{"종결", "완료"},
	}
}

func (c Config) validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return ErrEmptyRange
	}
	if c.Start.After(c.End) {
		return ErrInvertedRange
	}
	return nil
}

// Run executes the full extraction pipeline: crawl the listing, parse
// rows, validate records and aggregate them into monthly summaries.
// It always returns a Result with a populated ExtractionReport, only
// a bad configuration fails before any page is touched.
func Run(ctx context.Context, fetcher PageFetcher, cfg Config) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	err := cfg.validate()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return Result{}, err
	}
	if cfg.Parse.ReferenceYear == 0 {
		cfg.Parse.ReferenceYear = cfg.End.Year()
	}

	var result Result

	c := crawler{fetcher: fetcher, cfg: cfg.Crawl, report: &result.Report}
	rows := c.crawl(ctx)

	var candidates []CandidateRecord
	for _, row := range rows {
		record, err := ParseRow(row, cfg.Parse)
		if err != nil {
			slog.WarnContext(ctx, "dropping unparseable row",
				"page", row.Page, "row", row.Index, "err", err)
			result.Report.ParseFailures = append(result.Report.ParseFailures, ParseFailure{
				Page:      row.Page,
				Row:       row.Index,
				Reason:    err,
				RawSource: row.Cells,
			})
			continue
		}
		candidates = append(candidates, record)
	}

	validated, rejections := Normalize(candidates, NormalizeConfig{
		Start:        cfg.Start,
		End:          cfg.End,
		ClosedTokens: cfg.ClosedTokens,
	})
	result.Records = validated
	result.Report.Rejections = rejections

	result.Buckets = Aggregate(validated, cfg.Start, cfg.End)
	result.Summaries = Summarize(result.Buckets)

	span.SetAttributes(
		attribute.Int("pages_visited", result.Report.PagesVisited),
		attribute.Int("rows_scraped", result.Report.RowsScraped),
		attribute.Int("records", len(result.Records)),
		attribute.Int("parse_failures", len(result.Report.ParseFailures)),
		attribute.Int("rejections", len(result.Report.Rejections)),
	)
	if result.Report.NoListingMatched {
		slog.ErrorContext(ctx, "no candidate selector matched any listing page, result is empty")
	}

	return result, nil
}
