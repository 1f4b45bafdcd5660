package messaging

import (
	"context"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIBERS
// ══════════════════════════════════════════════════════════════════════════════

// resultsStaleEvents change what a competition's report would contain.
// Their aggregate ID is the competition ID.
var resultsStaleEvents = []shared.EventType{
	shared.EventEntryRegistered,
	shared.EventEntryEdited,
	shared.EventAttemptsRecorded,
}

const invalidateTimeout = 5 * time.Second

// RegisterResultsInvalidation drops cached results whenever entries or
// attempts of a competition change.
func RegisterResultsInvalidation(bus shared.EventSubscriber, cache results.Cache, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	handler := func(event shared.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()

		if err := cache.Invalidate(ctx, event.AggregateID()); err != nil {
			return err
		}
		log.Debug("results cache invalidated",
			logger.CompetitionID(event.AggregateID()),
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	for _, t := range resultsStaleEvents {
		if err := bus.Subscribe(t, handler); err != nil {
			return err
		}
	}
	return nil
}

// RegisterRecordAnnouncer logs every record created or improved.
func RegisterRecordAnnouncer(bus shared.EventSubscriber, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	return bus.Subscribe(shared.EventRecordSet, func(event shared.Event) error {
		e, ok := event.(shared.RecordSetEvent)
		if !ok {
			return nil
		}
		log.Info("new record",
			logger.RecordKey(e.AggregateID()),
			logger.String("outcome", e.Outcome),
			logger.Float64("weight", e.Weight),
			logger.Float64("previous_weight", e.PreviousWeight),
			logger.String("athlete", e.AthleteName),
		)
		return nil
	})
}
