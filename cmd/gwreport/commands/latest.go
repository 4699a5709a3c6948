package commands

import (
	"database/sql"
	"errors"
	"log/slog"

	"gwreport-backend/lib/configutil"
	"gwreport-backend/lib/serviceutil"
	"gwreport-backend/lib/timezone"
	"gwreport-backend/services/ledger"
	"gwreport-backend/services/ledger/export"
	"gwreport-backend/services/ledger/runstore"

	"github.com/spf13/cobra"
)

var latestOut *string

func init() {
	latestOut = latestCmd.Flags().String("out", "", "Workbook output path. Defaults to a generated name in the cwd.")
	rootCmd.AddCommand(latestCmd)
}

var latestCmd = &cobra.Command{
	Use:   "latest [--out <path/to/report.xlsx>]",
	Short: "Rebuilds the report workbook from the most recent persisted run without re-crawling.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cleanup := setupTelemetry(ctx, "gwreport")
		defer cleanup()

		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Database == "" {
			serviceutil.Fatal("no run store configured", errors.New("set database in config.json5"))
		}

		database, err := openRunStore(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open run store", err)
		}
		defer database.Close()

		run, err := runstore.NewStore(database).LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			serviceutil.Fatal("run store is empty", err)
		}
		if err != nil {
			serviceutil.Fatal("failed to read latest run", err)
		}
		slog.InfoContext(ctx, "loaded run",
			"run_id", run.Id,
			"started_at", run.StartedAt,
			"records", len(run.Records))

		out := *latestOut
		if out == "" {
			out = export.DefaultFilename(timezone.Now())
		}
		err = export.WriteFile(out, ledger.Result{
			Records:   run.Records,
			Summaries: run.Summaries,
		})
		if err != nil {
			serviceutil.Fatal("failed to write workbook", err)
		}
		slog.InfoContext(ctx, "report written", "path", out)
	},
}
