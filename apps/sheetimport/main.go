// Command sheetimport loads CSV exports of the investor spreadsheets into the
// record store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/config"
	"github.com/smallbiznis/investorhub/internal/logger"
	"github.com/smallbiznis/investorhub/internal/migration"
	"github.com/smallbiznis/investorhub/internal/recordstore/repository"
	"github.com/smallbiznis/investorhub/internal/recordstore/sheet"
	"github.com/smallbiznis/investorhub/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	investors   string
	investments string
	payouts     string
	agreements  string
	consents    string
	dryRun      bool
	logLevel    string
	verbose     bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "sheetimport",
		Short: "Import investor spreadsheet exports into the record store",
		Long: `Import CSV exports of the Investors, Investments, Payouts, Agreements and
LegalConsents sheets. Columns are matched by header name, so column order
does not matter. Investors whose email already exists are skipped.

Examples:
  sheetimport --investors investors.csv --investments investments.csv
  sheetimport --investors investors.csv --dry-run
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.investors, "investors", "", "Investors sheet CSV")
	cmd.Flags().StringVar(&opts.investments, "investments", "", "Investments sheet CSV")
	cmd.Flags().StringVar(&opts.payouts, "payouts", "", "Payouts sheet CSV")
	cmd.Flags().StringVar(&opts.agreements, "agreements", "", "Agreements sheet CSV")
	cmd.Flags().StringVar(&opts.consents, "consents", "", "LegalConsents sheet CSV")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and report without writing")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Human-readable console logs")

	return cmd
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(opts.logLevel, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	open := func(path string) (io.Reader, error) {
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		closers = append(closers, f)
		return f, nil
	}

	var src sheet.Sources
	for _, item := range []struct {
		path string
		dst  *io.Reader
	}{
		{opts.investors, &src.Investors},
		{opts.investments, &src.Investments},
		{opts.payouts, &src.Payouts},
		{opts.agreements, &src.Agreements},
		{opts.consents, &src.Consents},
	} {
		r, err := open(item.path)
		if err != nil {
			return err
		}
		if r != nil {
			*item.dst = r
		}
	}
	if len(closers) == 0 {
		return errors.New("at least one sheet file is required")
	}

	cfg := config.Load()
	conn, err := db.Open(db.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := migration.Run(conn, cfg.DBType); err != nil {
		return err
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return err
	}

	importer := sheet.NewImporter(repository.New(conn, node), clock.NewSystemClock(), log, opts.dryRun)
	report, err := importer.Import(ctx, src)
	if err != nil {
		return err
	}

	log.Info("import finished",
		zap.String("batch_id", report.BatchID),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("investors_created", report.InvestorsCreated),
		zap.Int("investors_skipped", report.InvestorsSkipped),
		zap.Int("investments", report.Investments),
		zap.Int("investments_skipped", report.InvestmentsSkipped),
		zap.Int("payouts", report.Payouts),
		zap.Int("payouts_skipped", report.PayoutsSkipped),
		zap.Int("agreements", report.Agreements),
		zap.Int("agreements_skipped", report.AgreementsSkipped),
		zap.Int("consent_events", report.ConsentEvents),
		zap.Int("consent_events_skipped", report.ConsentEventsSkipped),
		zap.Int("row_errors", len(report.RowErrors)),
	)
	for _, rowErr := range report.RowErrors {
		fmt.Fprintf(out, "skipped %s\n", rowErr.Error())
	}
	return nil
}
