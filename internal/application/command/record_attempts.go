package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ATTEMPTS COMMAND
// Stores the weigh-in and attempt weights of an entry.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttemptsCommand contains the attempts of one entry.
type RecordAttemptsCommand struct {
	EntryID string

	// Bodyweight is the weigh-in result. 0 keeps the stored value.
	Bodyweight float64

	Attempts registration.Attempts

	CorrelationID string
}

// Validate validates the command.
func (c RecordAttemptsCommand) Validate() error {
	if c.EntryID == "" {
		return errors.New("record_attempts: entry_id is required")
	}
	if c.Bodyweight < 0 {
		return shared.NewValidationError(shared.RuleNegativeAttempt, "bodyweight", "bodyweight cannot be negative")
	}
	return c.Attempts.Validate()
}

// RecordAttemptsResult reports the stored entry and its best lifts.
type RecordAttemptsResult struct {
	Entry *registration.Entry
	Best  results.Lifts
}

// RecordAttemptsHandler handles the RecordAttemptsCommand.
type RecordAttemptsHandler struct {
	competitions   registration.CompetitionRepository
	entries        registration.EntryRepository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewRecordAttemptsHandler creates a new RecordAttemptsHandler.
func NewRecordAttemptsHandler(
	competitions registration.CompetitionRepository,
	entries registration.EntryRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RecordAttemptsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RecordAttemptsHandler{
		competitions:   competitions,
		entries:        entries,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

// Handle executes the record attempts command.
func (h *RecordAttemptsHandler) Handle(ctx context.Context, cmd RecordAttemptsCommand) (*RecordAttemptsResult, error) {
	if err := cmd.Validate(); err != nil {
		if shared.IsValidation(err) {
			return nil, err
		}
		return nil, shared.WrapError("command", "RecordAttempts", shared.ErrInvalidInput, "invalid command", err)
	}

	entry, err := h.entries.GetByID(ctx, cmd.EntryID)
	if err != nil {
		return nil, fmt.Errorf("record_attempts: failed to get entry: %w", err)
	}
	comp, err := h.competitions.GetByID(ctx, entry.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("record_attempts: failed to get competition: %w", err)
	}

	bodyweight := entry.Bodyweight
	if cmd.Bodyweight > 0 {
		bodyweight = cmd.Bodyweight
	}
	if err := h.entries.UpdateAttempts(ctx, entry.ID, bodyweight, cmd.Attempts); err != nil {
		return nil, fmt.Errorf("record_attempts: failed to store attempts: %w", err)
	}

	entry.Bodyweight = bodyweight
	entry.Attempts = cmd.Attempts
	best := results.Bests(cmd.Attempts, comp.MeetEvent())

	event := shared.NewAttemptsRecordedEvent(comp.ID, entry.ID, best.Total)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	publish(h.eventPublisher, h.log, event)

	h.log.Debug("attempts recorded",
		logger.CompetitionID(comp.ID),
		logger.EntryID(entry.ID),
		logger.Float64("total", best.Total),
	)
	return &RecordAttemptsResult{Entry: entry, Best: best}, nil
}
