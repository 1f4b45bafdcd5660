// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER ENTRY COMMAND
// Registers an athlete in a competition after category assignment passes.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterEntryCommand contains the data to register an entry.
type RegisterEntryCommand struct {
	CompetitionID string
	AthleteID     string

	// WeightClass is the class name, e.g. "83" or "+120".
	WeightClass string

	// Division is the primary age division.
	Division string

	// Equipment is required when the competition allows both modalities.
	Equipment string

	// Bridge is an optional second division.
	Bridge string

	DeclaredTotal float64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterEntryCommand) Validate() error {
	if strings.TrimSpace(c.CompetitionID) == "" {
		return errors.New("register_entry: competition_id is required")
	}
	if strings.TrimSpace(c.AthleteID) == "" {
		return errors.New("register_entry: athlete_id is required")
	}
	if strings.TrimSpace(c.WeightClass) == "" {
		return errors.New("register_entry: weight_class is required")
	}
	if strings.TrimSpace(c.Division) == "" {
		return errors.New("register_entry: division is required")
	}
	if c.DeclaredTotal < 0 {
		return errors.New("register_entry: declared_total cannot be negative")
	}
	return nil
}

// RegisterEntryResult contains the stored entry.
type RegisterEntryResult struct {
	Entry  *registration.Entry
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterEntryHandler handles the RegisterEntryCommand.
type RegisterEntryHandler struct {
	athletes       registration.AthleteRepository
	competitions   registration.CompetitionRepository
	entries        registration.EntryRepository
	assigner       *registration.Assigner
	eventPublisher shared.EventPublisher
	log            *logger.Logger
	now            func() time.Time
}

// NewRegisterEntryHandler creates a new RegisterEntryHandler.
func NewRegisterEntryHandler(
	athletes registration.AthleteRepository,
	competitions registration.CompetitionRepository,
	entries registration.EntryRepository,
	assigner *registration.Assigner,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RegisterEntryHandler {
	if assigner == nil {
		assigner = registration.NewAssigner(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterEntryHandler{
		athletes:       athletes,
		competitions:   competitions,
		entries:        entries,
		assigner:       assigner,
		eventPublisher: eventPublisher,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the register entry command.
func (h *RegisterEntryHandler) Handle(ctx context.Context, cmd RegisterEntryCommand) (*RegisterEntryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "RegisterEntry", shared.ErrInvalidInput, "invalid command", err)
	}

	comp, err := h.competitions.GetByID(ctx, cmd.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("register_entry: failed to get competition: %w", err)
	}
	athlete, err := h.athletes.GetByID(ctx, cmd.AthleteID)
	if err != nil {
		return nil, fmt.Errorf("register_entry: failed to get athlete: %w", err)
	}

	now := h.now()
	if !comp.RegistrationOpen(now) {
		return nil, shared.NewValidationError(shared.RuleRegistrationClosed, "",
			"registration for %s is not open", comp.Name)
	}

	existing, err := h.entries.ListByAthlete(ctx, comp.ID, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("register_entry: failed to list athlete entries: %w", err)
	}

	draft, err := buildDraft(h.assigner.Rules(), *athlete, cmd.WeightClass, cmd.Division, cmd.Bridge, cmd.Equipment, cmd.DeclaredTotal)
	if err != nil {
		return nil, err
	}

	asg, err := h.assigner.Assign(*comp, draft, existing)
	if err != nil {
		h.logRejection(comp.ID, athlete.ID, err)
		return nil, err
	}

	entry := &registration.Entry{
		ID:            uuid.NewString(),
		CompetitionID: comp.ID,
		Athlete:       *athlete,
		Assignment:    *asg,
		DeclaredTotal: cmd.DeclaredTotal,
		RegisteredAt:  now,
		UpdatedAt:     now,
	}
	if err := h.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("register_entry: failed to store entry: %w", err)
	}

	event := shared.NewEntryRegisteredEvent(
		comp.ID, entry.ID, athlete.ID,
		string(asg.Division), string(asg.Bridge), asg.WeightClass.Name, string(asg.Equipment),
		int64(asg.Fee.Total),
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	publish(h.eventPublisher, h.log, event)

	h.log.Info("entry registered",
		logger.CompetitionID(comp.ID),
		logger.AthleteID(athlete.ID),
		logger.EntryID(entry.ID),
		logger.String("division", string(asg.Division)),
		logger.String("bridge", string(asg.Bridge)),
	)

	return &RegisterEntryResult{Entry: entry, Events: []shared.Event{event}}, nil
}

func (h *RegisterEntryHandler) logRejection(competitionID, athleteID string, err error) {
	if ve, ok := shared.AsValidation(err); ok {
		h.log.Debug("entry rejected",
			logger.CompetitionID(competitionID),
			logger.AthleteID(athleteID),
			logger.Rule(string(ve.Rule)),
		)
	}
}

// buildDraft normalizes request labels. Unknown divisions are passed through
// so assignment reports them with the matching rule code.
func buildDraft(rules *eligibility.Rules, athlete registration.Athlete, class, division, bridge, equipment string, declared float64) (registration.Draft, error) {
	draft := registration.Draft{
		Athlete:       athlete,
		WeightClass:   strings.TrimSpace(class),
		Division:      parseDivision(rules, division),
		Bridge:        parseDivision(rules, bridge),
		DeclaredTotal: declared,
	}

	if e := strings.TrimSpace(equipment); e != "" {
		eq, ok := shared.ParseEquipment(e)
		if !ok {
			return registration.Draft{}, shared.NewValidationError(shared.RuleModalityMismatch, "equipment",
				"unknown equipment %q", equipment)
		}
		draft.Equipment = eq
	}
	return draft, nil
}

func parseDivision(rules *eligibility.Rules, s string) eligibility.Division {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if d, ok := rules.ParseDivision(s); ok {
		return d
	}
	return eligibility.Division(s)
}

func publish(p shared.EventPublisher, log *logger.Logger, event shared.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(event); err != nil {
		log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
