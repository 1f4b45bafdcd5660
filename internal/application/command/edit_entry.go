package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT ENTRY COMMAND
// Re-runs category assignment against proposed values. Bridges freeze one
// day before the nomination deadline; other fields stay editable.
// ══════════════════════════════════════════════════════════════════════════════

// EditEntryCommand carries the proposed values. Nil fields keep the current value.
type EditEntryCommand struct {
	EntryID string

	WeightClass   *string
	Division      *string
	Equipment     *string
	Bridge        *string
	DeclaredTotal *float64

	CorrelationID string
}

// Validate validates the command.
func (c EditEntryCommand) Validate() error {
	if c.EntryID == "" {
		return errors.New("edit_entry: entry_id is required")
	}
	if c.DeclaredTotal != nil && *c.DeclaredTotal < 0 {
		return errors.New("edit_entry: declared_total cannot be negative")
	}
	return nil
}

// EditEntryResult contains the updated entry.
type EditEntryResult struct {
	Entry   *registration.Entry
	Changed bool
}

// EditEntryHandler handles the EditEntryCommand.
type EditEntryHandler struct {
	competitions   registration.CompetitionRepository
	entries        registration.EntryRepository
	assigner       *registration.Assigner
	eventPublisher shared.EventPublisher
	log            *logger.Logger
	now            func() time.Time
}

// NewEditEntryHandler creates a new EditEntryHandler.
func NewEditEntryHandler(
	competitions registration.CompetitionRepository,
	entries registration.EntryRepository,
	assigner *registration.Assigner,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *EditEntryHandler {
	if assigner == nil {
		assigner = registration.NewAssigner(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EditEntryHandler{
		competitions:   competitions,
		entries:        entries,
		assigner:       assigner,
		eventPublisher: eventPublisher,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the edit entry command.
func (h *EditEntryHandler) Handle(ctx context.Context, cmd EditEntryCommand) (*EditEntryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "EditEntry", shared.ErrInvalidInput, "invalid command", err)
	}

	current, err := h.entries.GetByID(ctx, cmd.EntryID)
	if err != nil {
		return nil, fmt.Errorf("edit_entry: failed to get entry: %w", err)
	}
	comp, err := h.competitions.GetByID(ctx, current.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("edit_entry: failed to get competition: %w", err)
	}
	existing, err := h.entries.ListByAthlete(ctx, comp.ID, current.Athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("edit_entry: failed to list athlete entries: %w", err)
	}

	asg := current.Assignment
	declared := current.DeclaredTotal
	if cmd.DeclaredTotal != nil {
		declared = *cmd.DeclaredTotal
	}

	draft, err := buildDraft(
		h.assigner.Rules(),
		current.Athlete,
		pick(cmd.WeightClass, asg.WeightClass.Name),
		pick(cmd.Division, string(asg.Division)),
		pick(cmd.Bridge, string(asg.Bridge)),
		pick(cmd.Equipment, string(asg.Equipment)),
		declared,
	)
	if err != nil {
		return nil, err
	}

	next, err := h.assigner.Reassign(*comp, *current, draft, existing, h.now())
	if err != nil {
		return nil, err
	}

	changed := *next != asg || declared != current.DeclaredTotal
	if !changed {
		return &EditEntryResult{Entry: current}, nil
	}

	updated := *current
	updated.Assignment = *next
	updated.DeclaredTotal = declared
	updated.UpdatedAt = h.now()
	if err := h.entries.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("edit_entry: failed to update entry: %w", err)
	}

	event := shared.NewEntryEditedEvent(comp.ID, updated.ID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	publish(h.eventPublisher, h.log, event)

	h.log.Info("entry edited", logger.CompetitionID(comp.ID), logger.EntryID(updated.ID))
	return &EditEntryResult{Entry: &updated, Changed: true}, nil
}

func pick(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
