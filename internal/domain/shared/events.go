package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Registration events
	EventEntryRegistered EventType = "registration.entry_registered"
	EventEntryEdited     EventType = "registration.entry_edited"

	// Results events
	EventAttemptsRecorded EventType = "results.attempts_recorded"

	// Records events
	EventRecordSet       EventType = "records.record_set"
	EventRecordsImported EventType = "records.imported"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Registration Events
// ═══════════════════════════════════════════════════════════════════════════

// EntryRegisteredEvent is emitted when an athlete's entry passes category assignment.
// AggregateID is the competition ID.
type EntryRegisteredEvent struct {
	BaseEvent
	EntryID     string `json:"entry_id"`
	AthleteID   string `json:"athlete_id"`
	Division    string `json:"division"`
	Bridge      string `json:"bridge,omitempty"`
	WeightClass string `json:"weight_class"`
	Equipment   string `json:"equipment"`
	FeeTotal    int64  `json:"fee_total"`
}

// Payload implements Event interface.
func (e EntryRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entry_id":     e.EntryID,
		"athlete_id":   e.AthleteID,
		"division":     e.Division,
		"bridge":       e.Bridge,
		"weight_class": e.WeightClass,
		"equipment":    e.Equipment,
		"fee_total":    e.FeeTotal,
	}
}

// NewEntryRegisteredEvent creates a new EntryRegisteredEvent.
func NewEntryRegisteredEvent(competitionID, entryID, athleteID, division, bridge, weightClass, equipment string, feeTotal int64) EntryRegisteredEvent {
	return EntryRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventEntryRegistered, competitionID),
		EntryID:     entryID,
		AthleteID:   athleteID,
		Division:    division,
		Bridge:      bridge,
		WeightClass: weightClass,
		Equipment:   equipment,
		FeeTotal:    feeTotal,
	}
}

// EntryEditedEvent is emitted when an entry's category assignment changes.
type EntryEditedEvent struct {
	BaseEvent
	EntryID string `json:"entry_id"`
}

// Payload implements Event interface.
func (e EntryEditedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"entry_id": e.EntryID}
}

// NewEntryEditedEvent creates a new EntryEditedEvent.
func NewEntryEditedEvent(competitionID, entryID string) EntryEditedEvent {
	return EntryEditedEvent{
		BaseEvent: NewBaseEvent(EventEntryEdited, competitionID),
		EntryID:   entryID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Results Events
// ═══════════════════════════════════════════════════════════════════════════

// AttemptsRecordedEvent is emitted when attempts for an entry change.
// Cached results for the competition are stale after this event.
type AttemptsRecordedEvent struct {
	BaseEvent
	EntryID string  `json:"entry_id"`
	Total   float64 `json:"total"`
}

// Payload implements Event interface.
func (e AttemptsRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entry_id": e.EntryID,
		"total":    e.Total,
	}
}

// NewAttemptsRecordedEvent creates a new AttemptsRecordedEvent.
func NewAttemptsRecordedEvent(competitionID, entryID string, total float64) AttemptsRecordedEvent {
	return AttemptsRecordedEvent{
		BaseEvent: NewBaseEvent(EventAttemptsRecorded, competitionID),
		EntryID:   entryID,
		Total:     total,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Records Events
// ═══════════════════════════════════════════════════════════════════════════

// RecordSetEvent is emitted when the record book creates or improves a record.
// AggregateID is the record key.
type RecordSetEvent struct {
	BaseEvent
	Outcome        string  `json:"outcome"`
	Weight         float64 `json:"weight"`
	PreviousWeight float64 `json:"previous_weight,omitempty"`
	AthleteName    string  `json:"athlete_name"`
}

// Payload implements Event interface.
func (e RecordSetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"outcome":         e.Outcome,
		"weight":          e.Weight,
		"previous_weight": e.PreviousWeight,
		"athlete_name":    e.AthleteName,
	}
}

// NewRecordSetEvent creates a new RecordSetEvent.
func NewRecordSetEvent(recordKey, outcome string, weight, previous float64, athleteName string) RecordSetEvent {
	return RecordSetEvent{
		BaseEvent:      NewBaseEvent(EventRecordSet, recordKey),
		Outcome:        outcome,
		Weight:         weight,
		PreviousWeight: previous,
		AthleteName:    athleteName,
	}
}

// RecordsImportedEvent summarizes one finished import batch.
type RecordsImportedEvent struct {
	BaseEvent
	Created int `json:"created"`
	Updated int `json:"updated"`
	Kept    int `json:"kept"`
	Failed  int `json:"failed"`
}

// Payload implements Event interface.
func (e RecordsImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"created": e.Created,
		"updated": e.Updated,
		"kept":    e.Kept,
		"failed":  e.Failed,
	}
}

// NewRecordsImportedEvent creates a new RecordsImportedEvent.
func NewRecordsImportedEvent(batchID string, created, updated, kept, failed int) RecordsImportedEvent {
	return RecordsImportedEvent{
		BaseEvent: NewBaseEvent(EventRecordsImported, batchID),
		Created:   created,
		Updated:   updated,
		Kept:      kept,
		Failed:    failed,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
