package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gwreport-backend/lib/htmlutil"
	"gwreport-backend/lib/scrapers/amaranth"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type CrawlConfig struct {
	// candidate row-container selectors, tried in order on every page
	Selectors []string
	// hard ceiling on pagination, guards against runaway loops
	MaxPages int
	// transient-failure retries per page, after the first attempt
	RetryLimit int
	// initial backoff interval between retries
	RetryBase time.Duration
}

type crawler struct {
	fetcher PageFetcher
	cfg     CrawlConfig
	report  *ExtractionReport
}

// crawl walks the listing page by page and accumulates raw rows. A
// page that cannot be fetched or matched is skipped with a note, it
// never aborts the crawl. Rows outside the requested date range are
// still yielded, range filtering belongs to the normalizer.
func (c *crawler) crawl(ctx context.Context) []RawRow {
	ctx, span := tracer.Start(ctx, "crawl")
	defer span.End()

	var rows []RawRow
	matchedPages := 0

	for page := 1; page <= c.cfg.MaxPages; page++ {
		select {
		case <-ctx.Done():
			// accumulated rows stay useful on cancellation
			slog.WarnContext(ctx, "crawl cancelled", "page", page, "rows", len(rows))
			span.SetAttributes(attribute.Bool("cancelled", true))
			c.report.RowsScraped = len(rows)
			return rows
		default:
		}

		body, err := c.fetchPage(ctx, page)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreachable listing page", "page", page, "err", err)
			c.report.PagesSkipped = append(c.report.PagesSkipped, PageSkip{
				Page:   page,
				Reason: err.Error(),
			})
			continue
		}
		c.report.PagesVisited++

		pageRows, matched := c.extractRows(body, page)
		if !matched {
			slog.WarnContext(ctx, "no candidate selector matched the listing",
				"page", page, "selectors", strings.Join(c.cfg.Selectors, ", "))
			span.AddEvent("selector miss", trace.WithAttributes(attribute.Int("page", page)))
			c.report.PagesSkipped = append(c.report.PagesSkipped, PageSkip{
				Page:   page,
				Reason: "no candidate selector matched",
			})
			continue
		}
		matchedPages++
		if len(pageRows) == 0 {
			break
		}

		rows = append(rows, pageRows...)
	}

	if matchedPages == 0 {
		c.report.NoListingMatched = true
		span.SetStatus(codes.Error, "no listing matched on any page")
	}
	c.report.RowsScraped = len(rows)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows
}

func (c *crawler) fetchPage(ctx context.Context, page int) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.RetryLimit)), ctx)

	attempt := 0
	var body string
	err := backoff.Retry(func() error {
		attempt++
		b, err := c.fetcher.FetchPage(ctx, page)
		if err == nil {
			body = b
			return nil
		}
		if !isTransientAccess(err) {
			return backoff.Permanent(err)
		}
		if attempt <= c.cfg.RetryLimit {
			c.report.TransientRetries++
		}
		return err
	}, policy)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return body, nil
}

func isTransientAccess(err error) bool {
	return errors.Is(err, amaranth.ErrAccessTimeout) ||
		errors.Is(err, amaranth.ErrAccessDenied)
}

// extractRows finds the listing inside one page of html. Candidate
// selectors are re-evaluated on every page so a layout drift mid-crawl
// only costs the pages it affects.
func (c *crawler) extractRows(body string, page int) ([]RawRow, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, false
	}

	matched := false
	for _, selector := range c.cfg.Selectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		matched = true

		var rows []RawRow
		listingRows(sel).Each(func(_ int, row *goquery.Selection) {
			if htmlutil.IsHeaderRow(row) {
				return
			}
			cells := htmlutil.CellTexts(row)
			if len(cells) == 0 {
				return
			}
			rows = append(rows, RawRow{
				Page:  page,
				Index: len(rows),
				Cells: cells,
			})
		})
		if len(rows) > 0 {
			return rows, true
		}
	}

	// a matched but row-less listing is a legitimate empty page
	return nil, matched
}

func listingRows(sel *goquery.Selection) *goquery.Selection {
	first := sel.First()
	switch goquery.NodeName(first) {
	case "table":
		return first.Find("tr")
	case "tbody":
		return first.ChildrenFiltered("tr")
	case "ul", "ol":
		return first.ChildrenFiltered("li")
	default:
		// the selector already names the row elements
		return sel
	}
}
