// Package registration validates and builds competition entries: which
// weight class, age division, equipment and optional bridge an athlete
// competes in, and what the entry costs.
package registration

import (
	"strings"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATHLETE
// ══════════════════════════════════════════════════════════════════════════════

// Athlete is a roster member. Immutable for the duration of a competition.
type Athlete struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	NationalID string     `json:"national_id,omitempty"`
	Team       string     `json:"team,omitempty"`
	Sex        shared.Sex `json:"sex"`
	BirthDate  time.Time  `json:"birth_date"`
	Bodyweight float64    `json:"bodyweight"`
}

// Identity returns the canonical key of the physical athlete: the national
// ID when present, otherwise the exact name.
func (a Athlete) Identity() string {
	if id := strings.TrimSpace(a.NationalID); id != "" {
		return "nid:" + id
	}
	return "name:" + a.Name
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPETITION
// ══════════════════════════════════════════════════════════════════════════════

// Competition carries the policy consumed by category assignment.
type Competition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Type is an externally owned label, e.g. "Nationals" or "Regional Cup".
	Type string `json:"type,omitempty"`

	// Date is the reference date for athlete ages.
	Date time.Time `json:"date"`

	Event          shared.MeetEvent `json:"event"`
	Modality       shared.Modality  `json:"modality"`
	AllowsBridging bool             `json:"allows_bridging"`

	RegistrationOpens  time.Time `json:"registration_opens,omitempty"`
	RegistrationCloses time.Time `json:"registration_closes,omitempty"`
	NominationDeadline time.Time `json:"nomination_deadline,omitempty"`

	BaseFee   shared.Money `json:"base_fee"`
	BridgeFee shared.Money `json:"bridge_fee"`
}

// RegistrationOpen reports whether now falls inside the registration window.
// A zero bound leaves that side of the window open.
func (c Competition) RegistrationOpen(now time.Time) bool {
	if !c.RegistrationOpens.IsZero() && now.Before(c.RegistrationOpens) {
		return false
	}
	if !c.RegistrationCloses.IsZero() && now.After(c.RegistrationCloses) {
		return false
	}
	return true
}

// BridgeEditable reports whether bridges may still change: now must be no
// later than one day before the nomination deadline.
func (c Competition) BridgeEditable(now time.Time) bool {
	if c.NominationDeadline.IsZero() {
		return true
	}
	return !now.After(c.NominationDeadline.AddDate(0, 0, -1))
}

// MeetEvent returns the scored event, defaulting to full power.
func (c Competition) MeetEvent() shared.MeetEvent {
	if c.Event.IsValid() {
		return c.Event
	}
	return shared.MeetFullPower
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPTS
// ══════════════════════════════════════════════════════════════════════════════

// Attempts holds three attempts per lift in kg. 0 means not taken or failed.
type Attempts struct {
	Squat    [3]float64 `json:"squat"`
	Bench    [3]float64 `json:"bench"`
	Deadlift [3]float64 `json:"deadlift"`
}

// Validate rejects negative attempt weights.
func (a Attempts) Validate() error {
	lifts := []struct {
		name string
		vals [3]float64
	}{
		{"squat", a.Squat},
		{"bench", a.Bench},
		{"deadlift", a.Deadlift},
	}
	for _, l := range lifts {
		for i, v := range l.vals {
			if v < 0 {
				return shared.NewValidationError(shared.RuleNegativeAttempt, l.name,
					"attempt %d is %.1f, attempts cannot be negative", i+1, v)
			}
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Fee is the entry cost breakdown. Total is always Base + Bridge.
type Fee struct {
	Base   shared.Money `json:"base"`
	Bridge shared.Money `json:"bridge"`
	Total  shared.Money `json:"total"`
}

// Assignment is a validated category assignment.
type Assignment struct {
	WeightClass eligibility.WeightClass `json:"weight_class"`
	Division    eligibility.Division    `json:"division"`
	Bridge      eligibility.Division    `json:"bridge,omitempty"`
	Equipment   shared.Equipment        `json:"equipment"`
	Age         int                     `json:"age"`
	Fee         Fee                     `json:"fee"`
}

// HasBridge reports whether the assignment spans two divisions.
func (a Assignment) HasBridge() bool {
	return a.Bridge != ""
}

// Divisions returns the primary division followed by the bridge, if any.
func (a Assignment) Divisions() []eligibility.Division {
	if a.HasBridge() {
		return []eligibility.Division{a.Division, a.Bridge}
	}
	return []eligibility.Division{a.Division}
}

// Entry is one registration of an athlete in a competition.
type Entry struct {
	ID            string     `json:"id"`
	CompetitionID string     `json:"competition_id"`
	Athlete       Athlete    `json:"athlete"`
	Assignment    Assignment `json:"assignment"`

	// DeclaredTotal is the athlete's best total of the prior 12 months.
	DeclaredTotal float64 `json:"declared_total"`

	// Bodyweight is the weigh-in result; 0 falls back to the roster value.
	Bodyweight float64  `json:"bodyweight,omitempty"`
	Attempts   Attempts `json:"attempts"`

	// Order is the registration sequence within the competition.
	Order        int       `json:"order"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectiveBodyweight returns the weigh-in, or the roster bodyweight.
func (e Entry) EffectiveBodyweight() float64 {
	if e.Bodyweight > 0 {
		return e.Bodyweight
	}
	return e.Athlete.Bodyweight
}

// Draft is a candidate entry before validation.
type Draft struct {
	Athlete     Athlete
	WeightClass string
	Division    eligibility.Division
	// Equipment is required for Both-modality competitions and may be left
	// empty when the competition forces one.
	Equipment     shared.Equipment
	Bridge        eligibility.Division
	DeclaredTotal float64
}

// AgeAt returns the athlete's age on the competition date.
func AgeAt(a Athlete, c Competition) (int, error) {
	if a.BirthDate.IsZero() {
		return 0, shared.NewValidationError(shared.RuleAgeUnknown, "birth_date", "athlete has no birth date")
	}
	if c.Date.IsZero() {
		return 0, shared.NewValidationError(shared.RuleAgeUnknown, "date", "competition has no date")
	}
	return timeutil.AgeOn(a.BirthDate, c.Date), nil
}
