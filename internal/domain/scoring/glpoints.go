// Package scoring implements IPF GL points, the bodyweight-adjusted score
// every ranking in the federation is expressed in.
//
// The formula is total: unrecognized inputs and degenerate denominators
// yield 0 rather than an error, so a bad row sorts last instead of
// blocking the rest of the field.
package scoring

import (
	"math"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// MinBodyweight is the lightest bodyweight the formula is defined for.
const MinBodyweight = 35.0

// Coefficients are the (a, b, c) constants of one GL curve.
type Coefficients struct {
	A float64
	B float64
	C float64
}

// Key selects a coefficient set.
type Key struct {
	Sex       shared.Sex
	Equipment shared.Equipment
	Event     shared.MeetEvent
}

// Table maps each (sex, equipment, event) combination to its curve.
type Table map[Key]Coefficients

// DefaultTable returns the published IPF GL coefficients.
func DefaultTable() Table {
	return Table{
		{shared.SexMale, shared.EquipmentClassic, shared.MeetFullPower}:    {1199.72839, 1025.18162, 0.00921},
		{shared.SexMale, shared.EquipmentEquipped, shared.MeetFullPower}:   {1236.25115, 1449.21864, 0.01644},
		{shared.SexFemale, shared.EquipmentClassic, shared.MeetFullPower}:  {610.32796, 1045.59282, 0.03048},
		{shared.SexFemale, shared.EquipmentEquipped, shared.MeetFullPower}: {758.63878, 949.31382, 0.02435},
		{shared.SexMale, shared.EquipmentClassic, shared.MeetBenchOnly}:    {320.98041, 281.40258, 0.01008},
		{shared.SexMale, shared.EquipmentEquipped, shared.MeetBenchOnly}:   {381.22073, 733.79378, 0.02398},
		{shared.SexFemale, shared.EquipmentClassic, shared.MeetBenchOnly}:  {142.40398, 442.52671, 0.04724},
		{shared.SexFemale, shared.EquipmentEquipped, shared.MeetBenchOnly}: {221.82209, 357.00377, 0.02937},
	}
}

// Formula computes GL points against a coefficient table.
type Formula struct {
	table Table
}

// NewFormula creates a Formula. A nil table uses DefaultTable.
func NewFormula(table Table) *Formula {
	if table == nil {
		table = DefaultTable()
	}
	return &Formula{table: table}
}

var defaultFormula = NewFormula(nil)

// Default returns the formula over the published coefficients.
func Default() *Formula {
	return defaultFormula
}

// Points returns GL points for normalized inputs, rounded to two decimals
// with Round2. It returns 0 for unknown combinations, bodyweight below
// MinBodyweight, a non-finite input or a zero denominator.
func (f *Formula) Points(totalKg, bodyweightKg float64, sex shared.Sex, equipment shared.Equipment, event shared.MeetEvent) float64 {
	if !finite(totalKg) || !finite(bodyweightKg) {
		return 0
	}
	if bodyweightKg < MinBodyweight || totalKg <= 0 {
		return 0
	}

	k, ok := f.table[Key{Sex: sex, Equipment: equipment, Event: event}]
	if !ok {
		return 0
	}

	denom := k.A - k.B*math.Exp(-k.C*bodyweightKg)
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0
	}

	return Round2(totalKg * 100 / denom)
}

// PointsFromLabels normalizes source labels before scoring. Mixed sex
// scores as male; Raw, Wraps and Sleeves score as Classic; single- and
// multi-ply score as Equipped. Squat-only or deadlift-only events yield 0.
func (f *Formula) PointsFromLabels(totalKg, bodyweightKg float64, sex, equipment, event string) float64 {
	s, ok := shared.ParseSex(sex)
	if !ok {
		return 0
	}
	e, ok := shared.ParseEquipment(equipment)
	if !ok {
		return 0
	}
	ev, ok := shared.ParseMeetEvent(event)
	if !ok {
		return 0
	}
	return f.Points(totalKg, bodyweightKg, s, e, ev)
}

// GLPoints scores raw labels with the published coefficients.
func GLPoints(totalKg, bodyweightKg float64, sex, equipment, event string) float64 {
	return defaultFormula.PointsFromLabels(totalKg, bodyweightKg, sex, equipment, event)
}

// Round2 rounds the float64 product v*100 half away from zero, so halves
// that are not exact in binary (1.005) may round down.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
