package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

func TestAgeOf_CivilCutoff(t *testing.T) {
	birth := timeutil.Date(1980, 7, 15)
	assert.Equal(t, 44, AgeOf(birth, timeutil.Date(2025, 7, 14)))
	assert.Equal(t, 45, AgeOf(birth, timeutil.Date(2025, 7, 15)))
}

func TestDivisionsFor_GuestAlwaysPresent(t *testing.T) {
	r := DefaultRules()
	for age := 0; age <= 100; age++ {
		assert.Contains(t, r.DivisionsFor(age), Guest, "age %d", age)
	}
}

func TestDivisionsFor_OpenExcludedFromSixty(t *testing.T) {
	r := DefaultRules()
	assert.Contains(t, r.DivisionsFor(59), Open)
	assert.NotContains(t, r.DivisionsFor(60), Open)
	assert.Contains(t, r.DivisionsFor(60), Master3)
	assert.NotContains(t, r.DivisionsFor(75), Open)
}

func TestDivisionsFor_KnownAges(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		age  int
		want []Division
	}{
		{12, []Division{Guest}},
		{14, []Division{SubJunior, Guest}},
		{18, []Division{SubJunior, Guest}},
		{19, []Division{Junior, Open, Guest}},
		{30, []Division{Open, Guest}},
		{45, []Division{Open, Master1, Guest}},
		{55, []Division{Open, Master2, Guest}},
		{65, []Division{Master3, Guest}},
		{82, []Division{Master4, Guest}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.DivisionsFor(tt.age), "age %d", tt.age)
	}
}

// Outside the Open band every age from 14 holds exactly one age-banded
// division besides Open.
func TestDivisionsFor_SingleNonOpenBand(t *testing.T) {
	r := DefaultRules()
	for age := 14; age <= 100; age++ {
		n := 0
		for _, d := range r.DivisionsFor(age) {
			if d != Open && d != Guest {
				n++
			}
		}
		if age >= 24 && age <= 39 {
			assert.Equal(t, 0, n, "age %d", age)
			assert.Contains(t, r.DivisionsFor(age), Open)
			continue
		}
		assert.Equal(t, 1, n, "age %d", age)
	}
}

func TestWeightClassesFor_RestrictedBand(t *testing.T) {
	r := DefaultRules()
	for _, sex := range []shared.Sex{shared.SexMale, shared.SexFemale} {
		lowest := r.Classes[sex][0]
		require.True(t, lowest.Restricted)

		for age := 10; age <= 80; age++ {
			names := classNames(r.WeightClassesFor(sex, age))
			if age >= 14 && age <= 18 {
				assert.Contains(t, names, lowest.Name, "sex %s age %d", sex, age)
			} else {
				assert.NotContains(t, names, lowest.Name, "sex %s age %d", sex, age)
			}
		}
	}
}

func TestWeightClasses_NamesUniquePerSex(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, []string{"43", "47", "52", "57", "63", "69", "76", "84", "+84"},
		classNames(r.Classes[shared.SexFemale]))
	assert.Equal(t, []string{"53", "59", "66", "74", "83", "93", "105", "120", "+120"},
		classNames(r.Classes[shared.SexMale]))

	for sex, list := range r.Classes {
		seen := map[string]bool{}
		for _, wc := range list {
			assert.False(t, seen[wc.Name], "duplicate %s in %s", wc.Name, sex)
			seen[wc.Name] = true
		}
	}
}

func TestCanBridge_Symmetric(t *testing.T) {
	r := DefaultRules()
	all := r.AllDivisions()
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, r.CanBridge(a, b), r.CanBridge(b, a), "%s/%s", a, b)
		}
	}
}

func TestCanBridge_NeverBridgingDivisions(t *testing.T) {
	r := DefaultRules()
	for _, never := range []Division{SubJunior, Master3, Master4} {
		for _, other := range r.AllDivisions() {
			assert.False(t, r.CanBridge(never, other), "%s/%s", never, other)
		}
	}
}

func TestCanBridge_ValidPairs(t *testing.T) {
	r := DefaultRules()
	valid := map[[2]Division]bool{
		{Open, Junior}:   true,
		{Open, Master1}:  true,
		{Open, Master2}:  true,
		{Guest, Open}:    true,
		{Guest, Junior}:  true,
		{Guest, Master1}: true,
		{Guest, Master2}: true,
	}
	all := r.AllDivisions()
	for i, a := range all {
		for _, b := range all[i:] {
			want := valid[[2]Division{a, b}] || valid[[2]Division{b, a}]
			assert.Equal(t, want, r.CanBridge(a, b), "%s/%s", a, b)
		}
	}
}

func TestBridgeOptionsFor_FilteredByAge(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, []Division{Master1, Guest}, r.BridgeOptionsFor(Open, 45))
	assert.Equal(t, []Division{Junior, Guest}, r.BridgeOptionsFor(Open, 21))
	assert.Equal(t, []Division{Guest}, r.BridgeOptionsFor(Open, 30))
	assert.Equal(t, []Division{Open, Guest}, r.BridgeOptionsFor(Master1, 45))
	assert.Empty(t, r.BridgeOptionsFor(Master3, 65))
}

func TestClassForBodyweight(t *testing.T) {
	r := DefaultRules()
	wc, ok := r.ClassForBodyweight(shared.SexMale, 82.4)
	require.True(t, ok)
	assert.Equal(t, "83", wc.Name)

	wc, ok = r.ClassForBodyweight(shared.SexMale, 83)
	require.True(t, ok)
	assert.Equal(t, "83", wc.Name)

	wc, ok = r.ClassForBodyweight(shared.SexFemale, 91)
	require.True(t, ok)
	assert.Equal(t, "+84", wc.Name)

	_, ok = r.ClassForBodyweight(shared.SexFemale, 0)
	assert.False(t, ok)
}

func TestCheckWeightClass_NamesRestriction(t *testing.T) {
	r := DefaultRules()

	_, err := r.CheckWeightClass(shared.SexMale, 25, "53")
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleWeightClassRestricted, ve.Rule)
	assert.Contains(t, ve.Message, "14-18")

	wc, err := r.CheckWeightClass(shared.SexMale, 16, "53kg")
	require.NoError(t, err)
	assert.Equal(t, "53", wc.Name)

	_, err = r.CheckWeightClass(shared.SexFemale, 25, "83")
	ve, ok = shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleWeightClassUnknown, ve.Rule)
}

func TestCheckBridge(t *testing.T) {
	r := DefaultRules()
	assert.NoError(t, r.CheckBridge(Open, Master1, 45))

	err := r.CheckBridge(Open, Master3, 45)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleBridgePair, ve.Rule)

	err = r.CheckBridge(Open, Master2, 45)
	ve, ok = shared.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, shared.RuleDivisionAge, ve.Rule)
}

func TestParseDivision(t *testing.T) {
	r := DefaultRules()
	d, ok := r.ParseDivision("Sub-Junior")
	assert.True(t, ok)
	assert.Equal(t, SubJunior, d)

	d, ok = r.ParseDivision("master 2")
	assert.True(t, ok)
	assert.Equal(t, Master2, d)

	_, ok = r.ParseDivision("Veteran")
	assert.False(t, ok)
}

func classNames(list []WeightClass) []string {
	out := make([]string, len(list))
	for i, wc := range list {
		out[i] = wc.Name
	}
	return out
}
