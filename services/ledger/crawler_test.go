package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gwreport-backend/lib/scrapers/amaranth"
	"gwreport-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const emptyListing = `<html><ul class="tableBody"></ul></html>`

func listingPage(rows ...string) string {
	body := `<html><ul class="tableBody">`
	for _, r := range rows {
		body += "<li>" + r + "</li>"
	}
	return body + `</ul></html>`
}

func listingRow(date, id, kind, status, amount string) string {
	return fmt.Sprintf(
		"<div>%s</div><div>%s</div><div>%s</div><div>%s</div><div>%s</div>",
		date, id, kind, status, amount,
	)
}

type fakeFetcher struct {
	pages map[int]string
	// errors returned before a page succeeds, consumed in order
	fail  map[int][]error
	calls map[int]int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int) (string, error) {
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[page]++
	if errs := f.fail[page]; len(errs) > 0 {
		err := errs[0]
		f.fail[page] = errs[1:]
		return "", err
	}
	body, ok := f.pages[page]
	if !ok {
		return emptyListing, nil
	}
	return body, nil
}

func testCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Selectors:  []string{"ul.tableBody", "table.listTable tbody"},
		MaxPages:   10,
		RetryLimit: 3,
		RetryBase:  time.Millisecond,
	}
}

func TestCrawlRetryThenSuccess(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/ledger")
	defer cleanup()

	fetcher := &fakeFetcher{
		pages: map[int]string{
			1: listingPage(
				listingRow("2024-01-05", "DOC-1", "매출품의", "종결", "1,000"),
				listingRow("2024-01-09", "DOC-2", "매입품의", "종결", "600"),
			),
		},
		fail: map[int][]error{
			1: {amaranth.ErrAccessTimeout, amaranth.ErrAccessTimeout},
		},
	}

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: testCrawlConfig(), report: &report}
	rows := c.crawl(context.Background())

	require.Len(t, rows, 2)
	require.Equal(t, []string{"2024-01-05", "DOC-1", "매출품의", "종결", "1,000"}, rows[0].Cells)
	require.Equal(t, 2, report.TransientRetries)
	require.Equal(t, 2, report.PagesVisited)
	require.Empty(t, report.PagesSkipped)
	require.False(t, report.NoListingMatched)
}

func TestCrawlSkipsExhaustedPage(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]string{
			1: listingPage(listingRow("2024-01-05", "DOC-1", "매출품의", "종결", "1,000")),
			2: listingPage(listingRow("2024-01-06", "DOC-2", "매출품의", "종결", "2,000")),
		},
		fail: map[int][]error{
			// more failures than the retry limit allows
			1: {
				amaranth.ErrAccessDenied, amaranth.ErrAccessDenied,
				amaranth.ErrAccessDenied, amaranth.ErrAccessDenied,
				amaranth.ErrAccessDenied,
			},
		},
	}

	cfg := testCrawlConfig()
	cfg.RetryLimit = 2

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: cfg, report: &report}
	rows := c.crawl(context.Background())

	// a single bad page must not abort the whole extraction
	require.Len(t, rows, 1)
	require.Equal(t, "DOC-2", rows[0].Cells[1])
	require.Len(t, report.PagesSkipped, 1)
	require.Equal(t, 1, report.PagesSkipped[0].Page)
	require.Equal(t, 3, fetcher.calls[1])
}

func TestCrawlPermanentErrorNotRetried(t *testing.T) {
	fetcher := &fakeFetcher{
		fail: map[int][]error{
			1: {errors.New("unexpected status 500 from listing page")},
		},
	}

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: testCrawlConfig(), report: &report}
	c.crawl(context.Background())

	require.Equal(t, 1, fetcher.calls[1])
	require.Zero(t, report.TransientRetries)
	require.Len(t, report.PagesSkipped, 1)
}

func TestCrawlSelectorDriftAcrossPages(t *testing.T) {
	tablePage := `<html><table class="listTable">
		<thead><tr><th>날짜</th><th>문서번호</th><th>구분</th><th>상태</th><th>금액</th></tr></thead>
		<tbody><tr>
			<td>2024-02-01</td><td>DOC-3</td><td>매입품의</td><td>종결</td><td>500</td>
		</tr></tbody>
	</table></html>`

	fetcher := &fakeFetcher{
		pages: map[int]string{
			1: listingPage(listingRow("2024-01-05", "DOC-1", "매출품의", "종결", "1,000")),
			2: tablePage,
		},
	}

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: testCrawlConfig(), report: &report}
	rows := c.crawl(context.Background())

	// selector choice is re-evaluated per page, header rows are excluded
	require.Len(t, rows, 2)
	require.Equal(t, "DOC-1", rows[0].Cells[1])
	require.Equal(t, "DOC-3", rows[1].Cells[1])
}

func TestCrawlNoListingMatched(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]string{
			1: `<html><div>maintenance</div></html>`,
			2: `<html><div>maintenance</div></html>`,
		},
	}
	for page := 3; page <= 10; page++ {
		fetcher.pages[page] = `<html><div>maintenance</div></html>`
	}

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: testCrawlConfig(), report: &report}
	rows := c.crawl(context.Background())

	require.Empty(t, rows)
	require.True(t, report.NoListingMatched)
	require.Len(t, report.PagesSkipped, 10)
}

func TestCrawlStopsAtPageCeiling(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]string{}}
	for page := 1; page <= 100; page++ {
		fetcher.pages[page] = listingPage(
			listingRow("2024-01-05", fmt.Sprintf("DOC-%d", page), "매출품의", "종결", "10"),
		)
	}

	cfg := testCrawlConfig()
	cfg.MaxPages = 5

	var report ExtractionReport
	c := crawler{fetcher: fetcher, cfg: cfg, report: &report}
	rows := c.crawl(context.Background())

	require.Len(t, rows, 5)
	require.Equal(t, 5, report.PagesVisited)
}

func TestCrawlCancellationKeepsPartialRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := &fakeFetcher{
		pages: map[int]string{
			1: listingPage(listingRow("2024-01-05", "DOC-1", "매출품의", "종결", "10")),
			2: listingPage(listingRow("2024-01-06", "DOC-2", "매출품의", "종결", "20")),
		},
	}
	cancelling := fetchFunc(func(c context.Context, page int) (string, error) {
		body, err := fetcher.FetchPage(c, page)
		if page == 1 {
			cancel()
		}
		return body, err
	})

	var report ExtractionReport
	c := crawler{fetcher: cancelling, cfg: testCrawlConfig(), report: &report}
	rows := c.crawl(ctx)

	// cancellation is observed between fetches, rows already
	// accumulated are still handed downstream
	require.Len(t, rows, 1)
	require.Equal(t, "DOC-1", rows[0].Cells[1])
}

type fetchFunc func(ctx context.Context, page int) (string, error)

func (f fetchFunc) FetchPage(ctx context.Context, page int) (string, error) {
	return f(ctx, page)
}
