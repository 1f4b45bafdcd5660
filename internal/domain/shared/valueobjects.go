// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Athlete Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Sex is the competition sex of an athlete.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// ParseSex normalizes a source sex label. Mixed ("Mx") competes as male.
func ParseSex(s string) (Sex, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MX", "MALE":
		return SexMale, true
	case "F", "FEMALE":
		return SexFemale, true
	default:
		return "", false
	}
}

// IsValid checks if the sex is one of the two competition sexes.
func (s Sex) IsValid() bool {
	return s == SexMale || s == SexFemale
}

// String returns the string representation.
func (s Sex) String() string {
	return string(s)
}

// ═══════════════════════════════════════════════════════════════════════════
// Equipment
// ═══════════════════════════════════════════════════════════════════════════

// Equipment is the two-way equipment split used for categories and scoring.
type Equipment string

const (
	EquipmentClassic  Equipment = "Classic"
	EquipmentEquipped Equipment = "Equipped"
)

// ParseEquipment folds the finer source categories into Classic or Equipped.
func ParseEquipment(s string) (Equipment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "classic", "wraps", "sleeves":
		return EquipmentClassic, true
	case "single-ply", "multi-ply", "equipped", "unlimited":
		return EquipmentEquipped, true
	default:
		return "", false
	}
}

// IsValid checks if the equipment is normalized.
func (e Equipment) IsValid() bool {
	return e == EquipmentClassic || e == EquipmentEquipped
}

// String returns the string representation.
func (e Equipment) String() string {
	return string(e)
}

// ═══════════════════════════════════════════════════════════════════════════
// Meet Event
// ═══════════════════════════════════════════════════════════════════════════

// MeetEvent is the set of lifts contested: full power or bench only.
type MeetEvent string

const (
	MeetFullPower MeetEvent = "SBD"
	MeetBenchOnly MeetEvent = "B"
)

// ParseMeetEvent accepts only the two scored events.
// Squat-only or deadlift-only labels have no formula and are rejected.
func ParseMeetEvent(s string) (MeetEvent, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SBD":
		return MeetFullPower, true
	case "B":
		return MeetBenchOnly, true
	default:
		return "", false
	}
}

// IsValid checks if the event is one of the scored events.
func (e MeetEvent) IsValid() bool {
	return e == MeetFullPower || e == MeetBenchOnly
}

// String returns the string representation.
func (e MeetEvent) String() string {
	return string(e)
}

// ═══════════════════════════════════════════════════════════════════════════
// Competition Modality
// ═══════════════════════════════════════════════════════════════════════════

// Modality is a competition's equipment policy.
type Modality string

const (
	ModalityClassicOnly  Modality = "ClassicOnly"
	ModalityEquippedOnly Modality = "EquippedOnly"
	ModalityBoth         Modality = "Both"
)

// ParseModality parses a modality label, case-insensitively.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classiconly", "classic":
		return ModalityClassicOnly, nil
	case "equippedonly", "equipped":
		return ModalityEquippedOnly, nil
	case "both":
		return ModalityBoth, nil
	default:
		return "", fmt.Errorf("%w: unknown modality %q", ErrInvalidInput, s)
	}
}

// Forced returns the single equipment a single-modality competition implies.
func (m Modality) Forced() (Equipment, bool) {
	switch m {
	case ModalityClassicOnly:
		return EquipmentClassic, true
	case ModalityEquippedOnly:
		return EquipmentEquipped, true
	default:
		return "", false
	}
}

// Allows reports whether an entry in the given equipment is permitted.
func (m Modality) Allows(e Equipment) bool {
	if m == ModalityBoth {
		return e.IsValid()
	}
	forced, ok := m.Forced()
	return ok && forced == e
}

// IsValid checks if the modality is known.
func (m Modality) IsValid() bool {
	return m == ModalityClassicOnly || m == ModalityEquippedOnly || m == ModalityBoth
}

// ═══════════════════════════════════════════════════════════════════════════
// Movement
// ═══════════════════════════════════════════════════════════════════════════

// Movement is a lift or the total, as tracked by the record book.
type Movement string

const (
	MovementSquat    Movement = "squat"
	MovementBench    Movement = "bench"
	MovementDeadlift Movement = "deadlift"
	MovementTotal    Movement = "total"
)

// AllMovements returns movements in ranking order.
func AllMovements() []Movement {
	return []Movement{MovementSquat, MovementBench, MovementDeadlift, MovementTotal}
}

// ParseMovement parses a movement label, case-insensitively.
func ParseMovement(s string) (Movement, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "squat", "s":
		return MovementSquat, true
	case "bench", "bench press", "b":
		return MovementBench, true
	case "deadlift", "d":
		return MovementDeadlift, true
	case "total", "t":
		return MovementTotal, true
	default:
		return "", false
	}
}

// String returns the string representation.
func (m Movement) String() string {
	return string(m)
}

// ═══════════════════════════════════════════════════════════════════════════
// Money
// ═══════════════════════════════════════════════════════════════════════════

// Money is an amount in minor currency units.
type Money int64

// String formats the amount with two decimals.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
