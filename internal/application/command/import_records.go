package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT RECORDS COMMAND
// Applies a batch of candidate marks to a record book dataset. The whole
// batch runs against one snapshot; malformed rows are reported, not fatal.
// ══════════════════════════════════════════════════════════════════════════════

// ImportRecordsCommand contains a candidate batch.
type ImportRecordsCommand struct {
	// Dataset names the record book, e.g. "national".
	Dataset    string
	Candidates []records.Candidate

	// DryRun reports outcomes without persisting anything.
	DryRun bool

	CorrelationID string
}

// Validate validates the command.
func (c ImportRecordsCommand) Validate() error {
	if c.Dataset == "" {
		return errors.New("import_records: dataset is required")
	}
	if len(c.Candidates) == 0 {
		return errors.New("import_records: no rows to import")
	}
	return nil
}

// ImportRecordsResult contains the import report.
type ImportRecordsResult struct {
	BatchID  string
	Dataset  string
	DryRun   bool
	Report   records.ImportReport
	Duration time.Duration
}

// errDryRun rolls back the book after a dry run.
var errDryRun = errors.New("dry run")

// ImportRecordsHandler handles the ImportRecordsCommand.
type ImportRecordsHandler struct {
	repo           records.Repository
	importer       *records.Importer
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewImportRecordsHandler creates a new ImportRecordsHandler.
func NewImportRecordsHandler(
	repo records.Repository,
	importer *records.Importer,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ImportRecordsHandler {
	if importer == nil {
		importer = records.NewImporter(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ImportRecordsHandler{
		repo:           repo,
		importer:       importer,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

// Handle executes the import records command.
func (h *ImportRecordsHandler) Handle(ctx context.Context, cmd ImportRecordsCommand) (*ImportRecordsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "ImportRecords", shared.ErrInvalidInput, "invalid command", err)
	}

	start := time.Now()
	result := &ImportRecordsResult{
		BatchID: uuid.NewString(),
		Dataset: cmd.Dataset,
		DryRun:  cmd.DryRun,
	}

	var changed []records.Record
	err := h.repo.Apply(ctx, cmd.Dataset, func(book *records.Book) error {
		result.Report = h.importer.Import(book, cmd.Candidates)
		changed = book.Changed()
		if cmd.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, fmt.Errorf("import_records: %w", err)
	}
	result.Duration = time.Since(start)

	h.log.Info("records imported",
		logger.String("dataset", cmd.Dataset),
		logger.String("batch_id", result.BatchID),
		logger.Bool("dry_run", cmd.DryRun),
		logger.Int("created", result.Report.Created),
		logger.Int("updated", result.Report.Updated),
		logger.Int("kept", result.Report.Kept),
		logger.Int("failed", result.Report.Failed),
		logger.Int("changed", len(changed)),
		logger.Latency(result.Duration),
	)

	if cmd.DryRun {
		return result, nil
	}

	for _, row := range result.Report.Rows {
		if row.Outcome != records.OutcomeCreated && row.Outcome != records.OutcomeUpdated {
			continue
		}
		event := shared.NewRecordSetEvent(row.Key, string(row.Outcome), row.Weight, row.Previous, row.Athlete)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		publish(h.eventPublisher, h.log, event)
	}

	summary := shared.NewRecordsImportedEvent(result.BatchID,
		result.Report.Created, result.Report.Updated, result.Report.Kept, result.Report.Failed)
	publish(h.eventPublisher, h.log, summary)

	return result, nil
}
