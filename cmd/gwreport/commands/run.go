package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gwreport-backend/lib/configutil"
	"gwreport-backend/lib/scrapers/amaranth"
	"gwreport-backend/lib/serviceutil"
	"gwreport-backend/lib/telemetry"
	"gwreport-backend/lib/timezone"
	"gwreport-backend/services/ledger"
	"gwreport-backend/services/ledger/export"
	"gwreport-backend/services/ledger/runstore"
	"gwreport-backend/services/ledger/runstore/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type GroupwareConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	ListPath string `json:"list_path"`
}

type Config struct {
	Groupware GroupwareConfig `json:"groupware"`
	// path to the sqlite run store, runs are not persisted when empty
	Database string `json:"database"`
}

var (
	runStart *string
	runEnd   *string
	runOut   *string
)

func init() {
	runStart = runCmd.Flags().String("start", "", "Range start (YYYY-MM-DD). Defaults to 12 months before the end.")
	runEnd = runCmd.Flags().String("end", "", "Range end (YYYY-MM-DD). Defaults to today.")
	runOut = runCmd.Flags().String("out", "", "Workbook output path. Defaults to output/<generated name>.xlsx.")
	rootCmd.AddCommand(runCmd)
}

func setupTelemetry(ctx context.Context, serviceName string) func() {
	telemetry.InitSlog(*verbose)

	tel, err := telemetry.SetupFromEnv(ctx, serviceName)
	if os.IsNotExist(err) {
		return func() {}
	}
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	return func() {
		tel.Shutdown(context.Background())
	}
}

func parseRange(startStr, endStr string) (start, end time.Time, err error) {
	end = timezone.Day(timezone.Now())
	if endStr != "" {
		end, err = time.ParseInLocation("2006-01-02", endStr, timezone.Location)
		if err != nil {
			return start, end, fmt.Errorf("parse --end: %w", err)
		}
	}
	start = end.AddDate(-1, 0, 0)
	if startStr != "" {
		start, err = time.ParseInLocation("2006-01-02", startStr, timezone.Location)
		if err != nil {
			return start, end, fmt.Errorf("parse --start: %w", err)
		}
	}
	return start, end, nil
}

func openRunStore(path string) (*sql.DB, error) {
	if path != ":memory:" {
		os.MkdirAll(filepath.Dir(path), 0777)
	}
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	_, err = database.Exec(db.Schema)
	if err != nil {
		return nil, err
	}
	return database, nil
}

var runCmd = &cobra.Command{
	Use:   "run [--start <date>] [--end <date>] [--out <path/to/report.xlsx>]",
	Short: "Scrapes closed requisitions from the groupware and writes the monthly report workbook.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cleanup := setupTelemetry(ctx, "gwreport")
		defer cleanup()

		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		start, end, err := parseRange(*runStart, *runEnd)
		if err != nil {
			serviceutil.Fatal("invalid date range", err)
		}

		client, err := amaranth.NewClient(ctx, amaranth.ClientOptions{
			BaseUrl:  cfg.Groupware.BaseUrl,
			ListPath: cfg.Groupware.ListPath,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize groupware client", err)
		}
		err = client.LoginUsernamePassword(ctx, cfg.Groupware.Username, cfg.Groupware.Password)
		if err != nil {
			serviceutil.Fatal("failed to login to groupware", err)
		}

		slog.InfoContext(ctx, "extracting closed requisitions",
			"start", start.Format("2006-01-02"),
			"end", end.Format("2006-01-02"),
			"username", cfg.Groupware.Username)

		startedAt := timezone.Now()
		result, err := ledger.Run(ctx, client.Listing(start, end), ledger.DefaultConfig(start, end))
		if err != nil {
			serviceutil.Fatal("extraction failed", err)
		}
		slog.InfoContext(ctx, "extraction finished",
			"records", len(result.Records),
			"pages", result.Report.PagesVisited,
			"parse_failures", len(result.Report.ParseFailures),
			"rejections", len(result.Report.Rejections),
			"seconds", time.Since(startedAt).Seconds())

		if cfg.Database != "" {
			database, err := openRunStore(cfg.Database)
			if err != nil {
				serviceutil.Fatal("failed to open run store", err)
			}
			defer database.Close()

			runId, err := runstore.NewStore(database).Push(ctx, runstore.PushRequest{
				StartedAt:  startedAt,
				RangeStart: start,
				RangeEnd:   end,
				Result:     result,
			})
			if err != nil {
				serviceutil.Fatal("failed to persist run", err)
			}
			slog.InfoContext(ctx, "run persisted", "run_id", runId)
		}

		out := *runOut
		if out == "" {
			err = os.MkdirAll("output", 0777)
			if err != nil {
				serviceutil.Fatal("failed to create output directory", err)
			}
			out = filepath.Join("output", export.DefaultFilename(timezone.Now()))
		}
		err = export.WriteFile(out, result)
		if err != nil {
			serviceutil.Fatal("failed to write workbook", err)
		}
		slog.InfoContext(ctx, "report written", "path", out)
	},
}
