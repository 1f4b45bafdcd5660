package results

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

type entryOpt func(*registration.Entry)

func withBridge(d eligibility.Division) entryOpt {
	return func(e *registration.Entry) { e.Assignment.Bridge = d }
}

func withNationalID(id string) entryOpt {
	return func(e *registration.Entry) { e.Athlete.NationalID = id }
}

func withClass(name string, limit float64) entryOpt {
	return func(e *registration.Entry) {
		e.Assignment.WeightClass = eligibility.WeightClass{Name: name, Limit: limit}
	}
}

// entry builds a male classic Open entry whose lifts sum to total.
func entry(order int, name string, bw, total float64, opts ...entryOpt) registration.Entry {
	squat := total * 35 / 100
	bench := total * 25 / 100
	dead := total - squat - bench
	e := registration.Entry{
		ID:    fmt.Sprintf("e-%d", order),
		Order: order,
		Athlete: registration.Athlete{
			ID:   fmt.Sprintf("a-%d", order),
			Name: name,
			Team: "Team " + name[:1],
			Sex:  shared.SexMale,
		},
		Assignment: registration.Assignment{
			Division:    eligibility.Open,
			Equipment:   shared.EquipmentClassic,
			WeightClass: eligibility.WeightClass{Name: "93", Limit: 93},
		},
		Bodyweight: bw,
		Attempts: registration.Attempts{
			Squat:    [3]float64{squat - 10, squat, 0},
			Bench:    [3]float64{bench, 0, bench - 5},
			Deadlift: [3]float64{dead - 20, dead - 10, dead},
		},
	}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func totalsOf(g Group) []float64 {
	out := make([]float64, len(g.Results))
	for i, r := range g.Results {
		out[i] = r.Best.Total
	}
	return out
}

func TestBests(t *testing.T) {
	a := registration.Attempts{
		Squat:    [3]float64{200, 210, 0},
		Bench:    [3]float64{0, 0, 0},
		Deadlift: [3]float64{250, -5, 240},
	}
	full := Bests(a, shared.MeetFullPower)
	assert.Equal(t, Lifts{Squat: 210, Bench: 0, Deadlift: 250, Total: 460}, full)

	bench := Bests(registration.Attempts{Bench: [3]float64{140, 145, 0}}, shared.MeetBenchOnly)
	assert.Equal(t, 145.0, bench.Total)
}

func TestAggregate_OverallRanking(t *testing.T) {
	entries := []registration.Entry{
		entry(1, "Ana", 90, 500),
		entry(2, "Bruno", 91, 450),
		entry(3, "Caio", 92, 600),
	}

	report := NewAggregator(DefaultOptions()).Aggregate(entries)
	require.Len(t, report.Groups, 1)

	g := report.Groups[0]
	assert.Equal(t, "M/Classic/Open", g.Key.String())
	assert.Equal(t, []float64{600, 500, 450}, totalsOf(g))
	assert.Equal(t, []int{1, 2, 3}, []int{g.Results[0].Ranks.Total, g.Results[1].Ranks.Total, g.Results[2].Ranks.Total})
	assert.Equal(t, "Caio", g.Results[0].Name)
}

func TestAggregate_PerLiftRanks(t *testing.T) {
	a := entry(1, "Ana", 90, 500)
	b := entry(2, "Bruno", 91, 450)
	b.Attempts.Bench = [3]float64{200, 0, 0} // best bench of the field

	report := NewAggregator(DefaultOptions()).Aggregate([]registration.Entry{a, b})
	g := report.Groups[0]

	byName := map[string]ScoredResult{}
	for _, r := range g.Results {
		byName[r.Name] = r
	}
	assert.Equal(t, 1, byName["Bruno"].Ranks.Bench)
	assert.Equal(t, 2, byName["Ana"].Ranks.Bench)
	assert.Equal(t, 1, byName["Ana"].Ranks.Squat)
}

func TestAggregate_TieBreaksByBodyweightThenOrder(t *testing.T) {
	entries := []registration.Entry{
		entry(1, "Heavy", 92, 500),
		entry(2, "Light", 85, 500),
		entry(3, "LateLight", 85, 500),
	}

	g := NewAggregator(DefaultOptions()).Aggregate(entries).Groups[0]
	names := []string{g.Results[0].Name, g.Results[1].Name, g.Results[2].Name}
	assert.Equal(t, []string{"Light", "LateLight", "Heavy"}, names)
	assert.Equal(t, 3, g.Results[2].Ranks.Total)
}

func TestAggregate_BridgedAthleteInBothGroups(t *testing.T) {
	entries := []registration.Entry{
		entry(1, "Ana", 90, 500, withBridge(eligibility.Master1)),
		entry(2, "Bruno", 91, 450),
	}

	report := NewAggregator(DefaultOptions()).Aggregate(entries)
	require.Len(t, report.Groups, 2)

	open, ok := report.FindGroup(GroupKey{Division: eligibility.Open, Equipment: shared.EquipmentClassic, Sex: shared.SexMale})
	require.True(t, ok)
	assert.Len(t, open.Results, 2)

	m1, ok := report.FindGroup(GroupKey{Division: eligibility.Master1, Equipment: shared.EquipmentClassic, Sex: shared.SexMale})
	require.True(t, ok)
	require.Len(t, m1.Results, 1)
	assert.True(t, m1.Results[0].Bridged)
	assert.Equal(t, open.Results[0].AthleteKey, m1.Results[0].AthleteKey)
}

func TestAggregate_CanonicalIdentityAcrossClasses(t *testing.T) {
	// Same physical athlete registered twice under different rosters rows.
	entries := []registration.Entry{
		entry(1, "Ana Lima", 82, 480, withNationalID("X-1"), withClass("83", 83)),
		entry(2, "Ana  Lima", 84, 510, withNationalID("X-1"), withClass("93", 93)),
		entry(3, "Bruno", 91, 450),
	}

	flat := NewAggregator(DefaultOptions()).Aggregate(entries)
	require.Len(t, flat.Groups, 1)
	assert.Equal(t, []float64{510, 450}, totalsOf(flat.Groups[0]))

	opts := DefaultOptions()
	opts.SplitByWeightClass = true
	split := NewAggregator(opts).Aggregate(entries)
	require.Len(t, split.Groups, 2)
	assert.Equal(t, "83", split.Groups[0].Key.WeightClass)
	assert.Equal(t, "93", split.Groups[1].Key.WeightClass)
}

func TestAggregate_MissingDataRanksLast(t *testing.T) {
	bomb := entry(2, "Bomb", 90, 500)
	bomb.Attempts = registration.Attempts{}
	bomb.Bodyweight = 0

	entries := []registration.Entry{entry(1, "Ana", 90, 300), bomb}
	g := NewAggregator(DefaultOptions()).Aggregate(entries).Groups[0]
	assert.Equal(t, "Bomb", g.Results[1].Name)
	assert.Zero(t, g.Results[1].GLPoints)
}

func TestBestLifter_AwardThreshold(t *testing.T) {
	two := []registration.Entry{
		entry(1, "Ana", 90, 500),
		entry(2, "Bruno", 80, 480),
	}
	report := NewAggregator(DefaultOptions()).Aggregate(two)
	require.Len(t, report.BestLifters, 1)
	cat := report.BestLifters[0]
	assert.False(t, cat.Awarding)
	assert.Len(t, cat.Athletes, 2)
	assert.Empty(t, cat.Podium())

	three := append(two, entry(3, "Caio", 100, 520))
	report = NewAggregator(DefaultOptions()).Aggregate(three)
	cat = report.BestLifters[0]
	assert.True(t, cat.Awarding)
	require.Len(t, cat.Podium(), 3)
	assert.Equal(t, []int{1, 2, 3}, []int{cat.Athletes[0].Place, cat.Athletes[1].Place, cat.Athletes[2].Place})
	for i := 1; i < len(cat.Athletes); i++ {
		assert.GreaterOrEqual(t, cat.Athletes[i-1].Result.GLPoints, cat.Athletes[i].Result.GLPoints)
	}
	assert.Equal(t, shared.MeetFullPower, cat.Key.Event)
}

func TestBestLifter_SortsByPointsAcrossClasses(t *testing.T) {
	// A lighter athlete with a lower total can out-point a heavier one.
	entries := []registration.Entry{
		entry(1, "Heavy", 120, 700, withClass("120", 120)),
		entry(2, "Light", 60, 520, withClass("66", 66)),
		entry(3, "Mid", 83, 560, withClass("83", 83)),
	}
	cat := NewAggregator(DefaultOptions()).Aggregate(entries).BestLifters[0]
	assert.Equal(t, "Light", cat.Athletes[0].Result.Name)
}

func TestBestLifter_BridgedAthleteCountsInEachDivision(t *testing.T) {
	entries := []registration.Entry{
		entry(1, "Ana", 90, 500, withBridge(eligibility.Master1)),
		entry(2, "Bruno", 91, 450),
		entry(3, "Caio", 92, 460),
	}
	report := NewAggregator(DefaultOptions()).Aggregate(entries)
	require.Len(t, report.BestLifters, 2)

	assert.Equal(t, eligibility.Open, report.BestLifters[0].Key.Division)
	assert.True(t, report.BestLifters[0].Awarding)
	assert.Equal(t, eligibility.Master1, report.BestLifters[1].Key.Division)
	assert.False(t, report.BestLifters[1].Awarding)
}

func TestReport_Placements(t *testing.T) {
	entries := []registration.Entry{
		entry(1, "Ana", 90, 500),
		entry(2, "Bruno", 91, 450),
	}
	p := NewAggregator(DefaultOptions()).Aggregate(entries).Placements()
	require.Len(t, p, 2)
	assert.Equal(t, "Ana", p[0].Name)
	assert.Equal(t, 1, p[0].Place)
	assert.Equal(t, "Team A", p[0].Team)
	assert.Equal(t, "M/Classic/Open", p[0].Group)
}
