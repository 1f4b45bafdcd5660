package records

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

func squatOpen83(weight float64, name string) Candidate {
	return Candidate{
		Movement:    "Squat",
		Division:    "Open",
		Sex:         "M",
		Equipment:   "Raw",
		WeightClass: "83",
		Weight:      weight,
		AthleteName: name,
		Competition: "Nationals",
		Date:        timeutil.Date(2024, 5, 4),
	}
}

var keyK = Key{
	Movement:    shared.MovementSquat,
	Division:    eligibility.Open,
	Sex:         shared.SexMale,
	Equipment:   shared.EquipmentClassic,
	WeightClass: "83",
}

func outcomes(r ImportReport) []Outcome {
	out := make([]Outcome, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Outcome
	}
	return out
}

func TestImport_HeavierFirstKeepsRecord(t *testing.T) {
	book := NewBook(nil)
	report := NewImporter(nil).Import(book, []Candidate{
		squatOpen83(100, "Ana"),
		squatOpen83(90, "Bia"),
	})

	assert.Equal(t, []Outcome{OutcomeCreated, OutcomeKept}, outcomes(report))
	rec, ok := book.Get(keyK)
	require.True(t, ok)
	assert.Equal(t, 100.0, rec.Weight)
	assert.Equal(t, "Ana", rec.AthleteName)
}

func TestImport_LighterFirstIsUpdated(t *testing.T) {
	book := NewBook(nil)
	report := NewImporter(nil).Import(book, []Candidate{
		squatOpen83(90, "Bia"),
		squatOpen83(100, "Ana"),
	})

	assert.Equal(t, []Outcome{OutcomeCreated, OutcomeUpdated}, outcomes(report))
	assert.Equal(t, 90.0, report.Rows[1].Previous)
	rec, _ := book.Get(keyK)
	assert.Equal(t, 100.0, rec.Weight)
}

func TestProposeUpdate_TieKeepsFirst(t *testing.T) {
	book := NewBook([]Record{{Key: keyK, Weight: 100, AthleteName: "First"}})

	p := book.ProposeUpdate(Record{Key: keyK, Weight: 100, AthleteName: "Second"})
	assert.Equal(t, OutcomeKept, p.Outcome)
	assert.Equal(t, "First", p.Record.AthleteName)
	assert.Empty(t, book.Changed())
}

func TestProposeUpdate_NeverDecreases(t *testing.T) {
	book := NewBook(nil)
	weights := []float64{120, 80, 150, 149.5, 150, 151}
	max := 0.0
	for _, w := range weights {
		book.ProposeUpdate(Record{Key: keyK, Weight: w})
		if w > max {
			max = w
		}
		rec, _ := book.Get(keyK)
		assert.Equal(t, max, rec.Weight)
	}
}

func TestImport_MalformedRowsDoNotAbort(t *testing.T) {
	noName := squatOpen83(100, " ")
	zero := squatOpen83(0, "Zero")
	negative := squatOpen83(-5, "Neg")
	noClass := squatOpen83(100, "NoClass")
	noClass.WeightClass = ""
	badSex := squatOpen83(100, "BadSex")
	badSex.Sex = "?"
	badMovement := squatOpen83(100, "Snatch")
	badMovement.Movement = "snatch"
	femaleClass := squatOpen83(100, "Wrong")
	femaleClass.WeightClass = "83"
	femaleClass.Sex = "F"

	book := NewBook(nil)
	report := NewImporter(nil).Import(book, []Candidate{
		noName, zero, negative, noClass, badSex, badMovement, femaleClass,
		squatOpen83(200, "Good"),
	})

	assert.Equal(t, 7, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Succeeded())
	for _, row := range report.Rows[:7] {
		assert.Equal(t, OutcomeFailed, row.Outcome)
		assert.Contains(t, row.Error, string(shared.RuleRecordRow))
	}
	assert.Equal(t, 8, report.Rows[7].Row)
	assert.Equal(t, 1, book.Len())
}

func TestImport_NonFiniteWeightsFail(t *testing.T) {
	book := NewBook(nil)
	report := NewImporter(nil).Import(book, []Candidate{
		squatOpen83(math.Inf(1), "Inf"),
		squatOpen83(math.NaN(), "NaN"),
		squatOpen83(math.Inf(-1), "NegInf"),
		squatOpen83(400, "Real"),
	})

	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeFailed, OutcomeFailed, OutcomeCreated}, outcomes(report))

	rec, ok := book.Get(keyK)
	require.True(t, ok)
	assert.Equal(t, 400.0, rec.Weight)
}

func TestCandidate_NormalizesLabels(t *testing.T) {
	c := Candidate{
		Movement: "deadlift", Division: "master 1", Sex: "mx", Equipment: "Single-ply",
		WeightClass: "120kg", Weight: 300, AthleteName: " Rui ",
	}
	rec, err := c.Normalize(eligibility.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, Key{
		Movement:    shared.MovementDeadlift,
		Division:    eligibility.Master1,
		Sex:         shared.SexMale,
		Equipment:   shared.EquipmentEquipped,
		WeightClass: "120",
	}, rec.Key)
	assert.Equal(t, "Rui", rec.AthleteName)
}

func TestBook_ChangedOnlyTracksDeltas(t *testing.T) {
	other := keyK
	other.Movement = shared.MovementBench

	book := NewBook([]Record{
		{Key: keyK, Weight: 200},
		{Key: other, Weight: 130},
	})
	book.ProposeUpdate(Record{Key: keyK, Weight: 190})
	book.ProposeUpdate(Record{Key: other, Weight: 135})

	changed := book.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, other, changed[0].Key)
	assert.Len(t, book.All(), 2)
}

func TestFilter_Matches(t *testing.T) {
	r := Record{Key: keyK}
	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{Movement: "squat", WeightClass: "83"}.Matches(r))
	assert.False(t, Filter{Division: "Junior"}.Matches(r))
}

func TestCandidatesFromReport(t *testing.T) {
	entry := registration.Entry{
		ID:    "e-1",
		Order: 1,
		Athlete: registration.Athlete{
			ID: "a-1", Name: "Ana", Sex: shared.SexFemale,
		},
		Assignment: registration.Assignment{
			Division:    eligibility.Open,
			Bridge:      eligibility.Guest,
			Equipment:   shared.EquipmentClassic,
			WeightClass: eligibility.WeightClass{Name: "63", Limit: 63},
		},
		Bodyweight: 62.5,
		Attempts: registration.Attempts{
			Squat:    [3]float64{140, 145, 0},
			Bench:    [3]float64{0, 0, 0},
			Deadlift: [3]float64{170, 180, 185},
		},
	}
	report := results.NewAggregator(results.DefaultOptions()).Aggregate([]registration.Entry{entry})

	cands := CandidatesFromReport(report, MeetInfo{Name: "Nationals", Date: timeutil.Date(2025, 9, 20)})
	require.Len(t, cands, 3, "bench has no mark and Guest is skipped")
	assert.Equal(t, "squat", cands[0].Movement)
	assert.Equal(t, 145.0, cands[0].Weight)
	assert.Equal(t, "deadlift", cands[1].Movement)
	assert.Equal(t, "total", cands[2].Movement)
	assert.Equal(t, 330.0, cands[2].Weight)
	assert.Equal(t, 3, cands[2].Row)

	book := NewBook(nil)
	rep := NewImporter(nil).Import(book, cands)
	assert.Equal(t, 3, rep.Created)
}
