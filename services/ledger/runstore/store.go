package runstore

import (
	"context"
	"database/sql"
	"time"

	"gwreport-backend/lib/timezone"
	"gwreport-backend/services/ledger"

	_ "modernc.org/sqlite"
)

// Store persists completed extraction runs so a report can be
// inspected after the fact without re-crawling the groupware.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type PushRequest struct {
	StartedAt  time.Time
	RangeStart time.Time
	RangeEnd   time.Time
	Result     ledger.Result
}

func (s Store) Push(ctx context.Context, req PushRequest) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO extraction_runs (
			started_at, range_start, range_end,
			pages_visited, rows_scraped, transient_retries,
			parse_failures, rejections, no_listing_matched
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.StartedAt.Unix(),
		req.RangeStart.Format("2006-01-02"),
		req.RangeEnd.Format("2006-01-02"),
		req.Result.Report.PagesVisited,
		req.Result.Report.RowsScraped,
		req.Result.Report.TransientRetries,
		len(req.Result.Report.ParseFailures),
		len(req.Result.Report.Rejections),
		req.Result.Report.NoListingMatched,
	)
	if err != nil {
		return 0, err
	}
	runId, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range req.Result.Records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO requisitions (
				run_id, document_id, kind, closed_date, amount, status
			) VALUES (?, ?, ?, ?, ?, ?)`,
			runId,
			r.DocumentID,
			r.Kind.String(),
			r.ClosedDate.Format("2006-01-02"),
			r.Amount,
			r.Status,
		)
		if err != nil {
			return 0, err
		}
	}

	for _, m := range req.Result.Summaries {
		growth := sql.NullFloat64{}
		if m.GrowthValid {
			growth = sql.NullFloat64{Float64: m.Growth, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_summaries (
				run_id, year, month, revenue, cost, profit,
				cumulative_profit, margin, growth, record_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runId,
			m.Year,
			int(m.Month),
			m.Revenue,
			m.Cost,
			m.Profit,
			m.CumulativeProfit,
			m.Margin,
			growth,
			m.RecordCount,
		)
		if err != nil {
			return 0, err
		}
	}

	return runId, tx.Commit()
}

type Run struct {
	Id               int64
	StartedAt        time.Time
	RangeStart       time.Time
	RangeEnd         time.Time
	PagesVisited     int
	RowsScraped      int
	TransientRetries int
	ParseFailures    int
	Rejections       int
	NoListingMatched bool

	Records   []ledger.ValidatedRecord
	Summaries []ledger.MonthlySummary
}

// LatestRun returns the most recent persisted run, sql.ErrNoRows when
// the store is empty.
func (s Store) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	var startedAt int64
	var rangeStart, rangeEnd string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, range_start, range_end,
			pages_visited, rows_scraped, transient_retries,
			parse_failures, rejections, no_listing_matched
		FROM extraction_runs ORDER BY id DESC LIMIT 1`,
	).Scan(
		&run.Id, &startedAt, &rangeStart, &rangeEnd,
		&run.PagesVisited, &run.RowsScraped, &run.TransientRetries,
		&run.ParseFailures, &run.Rejections, &run.NoListingMatched,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt = time.Unix(startedAt, 0).In(timezone.Location)
	run.RangeStart, err = time.ParseInLocation("2006-01-02", rangeStart, timezone.Location)
	if err != nil {
		return Run{}, err
	}
	run.RangeEnd, err = time.ParseInLocation("2006-01-02", rangeEnd, timezone.Location)
	if err != nil {
		return Run{}, err
	}

	run.Records, err = s.runRecords(ctx, run.Id)
	if err != nil {
		return Run{}, err
	}
	run.Summaries, err = s.runSummaries(ctx, run.Id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s Store) runRecords(ctx context.Context, runId int64) ([]ledger.ValidatedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, kind, closed_date, amount, status
		FROM requisitions WHERE run_id = ? ORDER BY closed_date, document_id`,
		runId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.ValidatedRecord
	for rows.Next() {
		var r ledger.CandidateRecord
		var kind, closedDate string
		err := rows.Scan(&r.DocumentID, &kind, &closedDate, &r.Amount, &r.Status)
		if err != nil {
			return nil, err
		}
		r.Kind = parseKind(kind)
		r.ClosedDate, err = time.ParseInLocation("2006-01-02", closedDate, timezone.Location)
		if err != nil {
			return nil, err
		}
		records = append(records, ledger.ValidatedRecord{CandidateRecord: r})
	}
	return records, rows.Err()
}

func (s Store) runSummaries(ctx context.Context, runId int64) ([]ledger.MonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, revenue, cost, profit,
			cumulative_profit, margin, growth, record_count
		FROM monthly_summaries WHERE run_id = ? ORDER BY year, month`,
		runId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ledger.MonthlySummary
	for rows.Next() {
		var m ledger.MonthlySummary
		var month int
		var growth sql.NullFloat64
		err := rows.Scan(
			&m.Year, &month, &m.Revenue, &m.Cost, &m.Profit,
			&m.CumulativeProfit, &m.Margin, &growth, &m.RecordCount,
		)
		if err != nil {
			return nil, err
		}
		m.Month = time.Month(month)
		m.Growth = growth.Float64
		m.GrowthValid = growth.Valid
		summaries = append(summaries, m)
	}
	return summaries, rows.Err()
}

func parseKind(s string) ledger.DocumentKind {
	switch s {
	case "sales":
		return ledger.KindSales
	case "purchase":
		return ledger.KindPurchase
	}
	return ledger.KindUnknown
}
