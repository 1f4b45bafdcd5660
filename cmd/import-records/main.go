// Command import-records loads a federation record sheet (CSV) into the
// record book.
//
//	import-records -file national_records.csv [-dataset national] [-dry-run] [-json]
//
// Rows that fail validation are reported and skipped; the rest of the sheet
// is applied in one transaction per dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/powerlifting-fed/federation-hub/config"
	"github.com/powerlifting-fed/federation-hub/internal/application/command"
	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/importer"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/messaging"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/persistence/postgres"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
	"github.com/powerlifting-fed/federation-hub/pkg/retry"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

type options struct {
	file    string
	dataset string
	dryRun  bool
	asJSON  bool
}

func main() {
	config.LoadDotEnv()

	var opts options
	flag.StringVar(&opts.file, "file", "", "path to the record sheet (CSV)")
	flag.StringVar(&opts.dataset, "dataset", "", "record book to update (default FEDERATION_DATASET)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "report outcomes without writing")
	flag.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	flag.Parse()

	if opts.file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "import-records: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL (or DB_HOST/DB_USER) is required")
	}
	if opts.dataset == "" {
		opts.dataset = cfg.Federation.Dataset
	}

	log := logger.New(logger.Options{
		Output:  os.Stderr,
		Level:   logger.ParseLevel(cfg.Observability.LogLevel),
		Console: true,
	}).With(logger.Component("import-records"))
	timeutil.SetLocation(cfg.App.Location)

	sheet, err := readSheet(opts.file)
	if err != nil {
		return err
	}
	log.Info("sheet parsed",
		logger.String("file", opts.file),
		logger.Int("header_row", sheet.HeaderRow),
		logger.Int("rows", len(sheet.Candidates)),
	)

	db, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Database.URL, MaxConns: 2}, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(db, log).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	defer bus.Close()
	if err := messaging.RegisterRecordAnnouncer(bus, log); err != nil {
		return err
	}

	rules := eligibility.DefaultRules()
	handler := command.NewImportRecordsHandler(
		postgres.NewRecordRepository(db),
		records.NewImporter(rules),
		bus,
		log,
	)

	// A concurrent import of the same dataset holds the advisory lock; wait
	// it out instead of failing the run.
	cmd := command.ImportRecordsCommand{
		Dataset:    opts.dataset,
		Candidates: sheet.Candidates,
		DryRun:     opts.dryRun,
	}
	busy := retry.Busy(shared.IsRetryable, func(attempt int, err error, wait time.Duration) {
		log.Warn("dataset busy, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Err(err),
		)
	})
	res, err := retry.Value(ctx, busy, func(ctx context.Context) (*command.ImportRecordsResult, error) {
		return handler.Handle(ctx, cmd)
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if opts.asJSON {
		return printJSON(os.Stdout, res)
	}
	return printReport(os.Stdout, res)
}

func readSheet(path string) (*importer.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer f.Close()

	sheet, err := importer.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return sheet, nil
}

func printJSON(w io.Writer, res *command.ImportRecordsResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"batch_id":    res.BatchID,
		"dataset":     res.Dataset,
		"dry_run":     res.DryRun,
		"report":      res.Report,
		"duration_ms": res.Duration.Milliseconds(),
	})
}

func printReport(w io.Writer, res *command.ImportRecordsResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tOUTCOME\tRECORD\tWEIGHT\tPREVIOUS\tDETAIL")
	for _, row := range res.Report.Rows {
		detail := row.Athlete
		if row.Error != "" {
			detail = row.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			row.Row, row.Outcome, row.Key, kg(row.Weight), kg(row.Previous), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	mode := "applied"
	if res.DryRun {
		mode = "dry run, nothing written"
	}
	_, err := fmt.Fprintf(w, "\n%s: %d created, %d updated, %d kept, %d failed (%s, %s)\n",
		res.Dataset, res.Report.Created, res.Report.Updated, res.Report.Kept, res.Report.Failed,
		mode, res.Duration.Round(time.Millisecond))
	return err
}

func kg(w float64) string {
	if w == 0 {
		return "-"
	}
	return fmt.Sprintf("%g", w)
}
