package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

func (f *fixture) registerHandler(y, m, d int) *RegisterEntryHandler {
	h := NewRegisterEntryHandler(f.athletes, f.competitions, f.entries, nil, f.publisher, nil)
	h.now = fixedClock(y, m, d)
	return h
}

func (f *fixture) editHandler(y, m, d int) *EditEntryHandler {
	h := NewEditEntryHandler(f.competitions, f.entries, nil, f.publisher, nil)
	h.now = fixedClock(y, m, d)
	return h
}

func classicOpenWithBridge() RegisterEntryCommand {
	return RegisterEntryCommand{
		CompetitionID: "nationals-2025",
		AthleteID:     "ath-1",
		WeightClass:   "63",
		Division:      "open",
		Bridge:        "Master 1",
		Equipment:     "Raw",
		DeclaredTotal: 400,
	}
}

func TestRegisterEntry_Success(t *testing.T) {
	f := newFixture()
	res, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), classicOpenWithBridge())
	require.NoError(t, err)

	e := res.Entry
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, e.Order)
	assert.Equal(t, eligibility.Open, e.Assignment.Division)
	assert.Equal(t, eligibility.Master1, e.Assignment.Bridge)
	assert.Equal(t, shared.EquipmentClassic, e.Assignment.Equipment)
	assert.Equal(t, 45, e.Assignment.Age)
	assert.Equal(t, registration.Fee{Base: 15000, Bridge: 5000, Total: 20000}, e.Assignment.Fee)
	assert.Equal(t, []shared.EventType{shared.EventEntryRegistered}, f.publisher.types())
}

func TestRegisterEntry_RegistrationClosed(t *testing.T) {
	f := newFixture()
	_, err := f.registerHandler(2025, 9, 2).Handle(context.Background(), classicOpenWithBridge())

	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleRegistrationClosed, ve.Rule)
	assert.Empty(t, f.entries.entries)
}

func TestRegisterEntry_RuleViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterEntryCommand)
		rule   shared.Rule
	}{
		{"invalid bridge pair", func(c *RegisterEntryCommand) { c.Bridge = "Master3" }, shared.RuleBridgePair},
		{"unknown division", func(c *RegisterEntryCommand) { c.Division = "Veteran" }, shared.RuleDivisionUnknown},
		{"division out of age", func(c *RegisterEntryCommand) { c.Division = "Junior"; c.Bridge = "" }, shared.RuleDivisionAge},
		{"restricted class", func(c *RegisterEntryCommand) { c.WeightClass = "43" }, shared.RuleWeightClassRestricted},
		{"missing equipment", func(c *RegisterEntryCommand) { c.Equipment = "" }, shared.RuleModalityRequired},
		{"unknown equipment", func(c *RegisterEntryCommand) { c.Equipment = "denim" }, shared.RuleModalityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cmd := classicOpenWithBridge()
			tt.mutate(&cmd)

			_, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), cmd)
			ve, ok := shared.AsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.Empty(t, f.publisher.types())
		})
	}
}

func TestRegisterEntry_OneEntryPerModality(t *testing.T) {
	f := newFixture()
	h := f.registerHandler(2025, 7, 1)

	_, err := h.Handle(context.Background(), classicOpenWithBridge())
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), classicOpenWithBridge())
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleDuplicateModality, ve.Rule)

	equipped := classicOpenWithBridge()
	equipped.Equipment = "Single-ply"
	equipped.Bridge = ""
	res, err := h.Handle(context.Background(), equipped)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entry.Order)
}

func TestRegisterEntry_NotFound(t *testing.T) {
	f := newFixture()
	cmd := classicOpenWithBridge()
	cmd.AthleteID = "ghost"

	_, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), cmd)
	assert.True(t, shared.IsNotFound(err))
}

func TestRegisterEntry_InvalidCommand(t *testing.T) {
	f := newFixture()
	_, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), RegisterEntryCommand{})
	assert.True(t, shared.IsValidation(err))
}

func TestEditEntry_BridgeFreeze(t *testing.T) {
	f := newFixture()
	res, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), classicOpenWithBridge())
	require.NoError(t, err)
	id := res.Entry.ID

	none := ""
	// Deadline is 2025-09-01, so bridges freeze after 2025-08-31.
	_, err = f.editHandler(2025, 9, 1).Handle(context.Background(), EditEntryCommand{EntryID: id, Bridge: &none})
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleBridgeFrozen, ve.Rule)

	class := "69"
	edited, err := f.editHandler(2025, 9, 1).Handle(context.Background(), EditEntryCommand{EntryID: id, WeightClass: &class})
	require.NoError(t, err)
	assert.True(t, edited.Changed)
	assert.Equal(t, "69", edited.Entry.Assignment.WeightClass.Name)
	assert.Equal(t, eligibility.Master1, edited.Entry.Assignment.Bridge)

	dropped, err := f.editHandler(2025, 8, 31).Handle(context.Background(), EditEntryCommand{EntryID: id, Bridge: &none})
	require.NoError(t, err)
	assert.False(t, dropped.Entry.Assignment.HasBridge())
	assert.Equal(t, shared.Money(15000), dropped.Entry.Assignment.Fee.Total)

	assert.Equal(t, []shared.EventType{
		shared.EventEntryRegistered, shared.EventEntryEdited, shared.EventEntryEdited,
	}, f.publisher.types())
}

func TestEditEntry_RechecksRules(t *testing.T) {
	f := newFixture()
	res, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), classicOpenWithBridge())
	require.NoError(t, err)

	junior := "Junior"
	_, err = f.editHandler(2025, 7, 2).Handle(context.Background(), EditEntryCommand{EntryID: res.Entry.ID, Division: &junior})
	assert.True(t, shared.IsValidation(err))

	unchanged, err := f.editHandler(2025, 7, 2).Handle(context.Background(), EditEntryCommand{EntryID: res.Entry.ID})
	require.NoError(t, err)
	assert.False(t, unchanged.Changed, "re-validating its own modality must not collide with itself")
}

func TestRecordAttempts(t *testing.T) {
	f := newFixture()
	res, err := f.registerHandler(2025, 7, 1).Handle(context.Background(), classicOpenWithBridge())
	require.NoError(t, err)

	h := NewRecordAttemptsHandler(f.competitions, f.entries, f.publisher, nil)
	out, err := h.Handle(context.Background(), RecordAttemptsCommand{
		EntryID:    res.Entry.ID,
		Bodyweight: 62.1,
		Attempts: registration.Attempts{
			Squat:    [3]float64{130, 137.5, 0},
			Bench:    [3]float64{70, 0, 75},
			Deadlift: [3]float64{160, 170, 177.5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 390.0, out.Best.Total)

	stored, err := f.entries.GetByID(context.Background(), res.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 62.1, stored.Bodyweight)
	assert.Equal(t, 177.5, stored.Attempts.Deadlift[2])
	assert.Contains(t, f.publisher.types(), shared.EventAttemptsRecorded)
}

func TestRecordAttempts_RejectsNegative(t *testing.T) {
	f := newFixture()
	h := NewRecordAttemptsHandler(f.competitions, f.entries, f.publisher, nil)

	_, err := h.Handle(context.Background(), RecordAttemptsCommand{
		EntryID:  "any",
		Attempts: registration.Attempts{Bench: [3]float64{100, -2.5, 0}},
	})
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleNegativeAttempt, ve.Rule)
	assert.Equal(t, "bench", ve.Field)
}

func TestImportRecords(t *testing.T) {
	repo := newMemRecords()
	pub := &recordingPublisher{}
	h := NewImportRecordsHandler(repo, nil, pub, nil)

	row := func(w float64, name string) records.Candidate {
		return records.Candidate{
			Movement: "squat", Division: "Open", Sex: "F", Equipment: "Classic",
			WeightClass: "63", Weight: w, AthleteName: name, Date: timeutil.Date(2025, 1, 1),
		}
	}

	res, err := h.Handle(context.Background(), ImportRecordsCommand{
		Dataset:    "national",
		Candidates: []records.Candidate{row(150, "A"), row(140, "B"), {AthleteName: "broken"}, row(155, "C")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Created)
	assert.Equal(t, 1, res.Report.Updated)
	assert.Equal(t, 1, res.Report.Kept)
	assert.Equal(t, 1, res.Report.Failed)

	stored, _ := repo.List(context.Background(), "national", records.Filter{})
	require.Len(t, stored, 1)
	assert.Equal(t, 155.0, stored[0].Weight)
	assert.Equal(t, "C", stored[0].AthleteName)

	assert.Equal(t, []shared.EventType{
		shared.EventRecordSet, shared.EventRecordSet, shared.EventRecordsImported,
	}, pub.types())
}

func TestImportRecords_DryRunPersistsNothing(t *testing.T) {
	repo := newMemRecords()
	pub := &recordingPublisher{}
	h := NewImportRecordsHandler(repo, nil, pub, nil)

	res, err := h.Handle(context.Background(), ImportRecordsCommand{
		Dataset: "national",
		DryRun:  true,
		Candidates: []records.Candidate{{
			Movement: "total", Division: "Open", Sex: "M", Equipment: "Raw",
			WeightClass: "93", Weight: 800, AthleteName: "X",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Created)

	stored, _ := repo.List(context.Background(), "national", records.Filter{})
	assert.Empty(t, stored)
	assert.Empty(t, pub.types())
}
