// Package eligibility maps an athlete's age and sex to the age divisions and
// weight classes they may enter, and decides which division pairs may be
// bridged into a single entry.
//
// All tables live in a Rules value so a federation can version or swap them;
// DefaultRules returns the current federation tables.
package eligibility

import (
	"strings"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// Division is an age division.
type Division string

const (
	SubJunior Division = "SubJunior"
	Junior    Division = "Junior"
	Open      Division = "Open"
	Master1   Division = "Master1"
	Master2   Division = "Master2"
	Master3   Division = "Master3"
	Master4   Division = "Master4"
	Guest     Division = "Guest"
)

// Unbounded marks an age range without an upper limit.
const Unbounded = -1

// AgeRange is an inclusive age range. Max == Unbounded means no upper limit.
type AgeRange struct {
	Min int
	Max int
}

// Contains reports whether age falls inside the range.
func (r AgeRange) Contains(age int) bool {
	if age < r.Min {
		return false
	}
	return r.Max == Unbounded || age <= r.Max
}

// DivisionRule binds a division to its age range.
// A division with AnyAge set (Guest) ignores the range.
type DivisionRule struct {
	Division Division
	Ages     AgeRange
	AnyAge   bool
}

// WeightClass is an upper-bound bodyweight class. The heaviest class of each
// sex is open-ended and named with a leading "+".
type WeightClass struct {
	Name       string  `json:"name"`
	Limit      float64 `json:"limit"`
	OpenEnded  bool    `json:"open_ended,omitempty"`
	Restricted bool    `json:"restricted,omitempty"`
}

// Holds reports whether a bodyweight fits the class.
func (w WeightClass) Holds(bodyweight float64) bool {
	if w.OpenEnded {
		return bodyweight > w.Limit
	}
	return bodyweight <= w.Limit
}

// Rules holds the federation's eligibility tables.
type Rules struct {
	// Divisions in canonical display order.
	Divisions []DivisionRule

	// Classes per sex, lightest first.
	Classes map[shared.Sex][]WeightClass

	// RestrictedAges is the age band allowed into restricted classes.
	RestrictedAges AgeRange

	// NeverBridge lists divisions that never bridge with anything.
	NeverBridge []Division

	// BridgeWildcard bridges with any other division not in NeverBridge.
	BridgeWildcard Division

	// BridgePairs are the remaining valid unordered pairs.
	BridgePairs [][2]Division
}

// DefaultRules returns the current federation tables.
func DefaultRules() *Rules {
	return &Rules{
		Divisions: []DivisionRule{
			{Division: SubJunior, Ages: AgeRange{14, 18}},
			{Division: Junior, Ages: AgeRange{19, 23}},
			{Division: Open, Ages: AgeRange{19, 59}},
			{Division: Master1, Ages: AgeRange{40, 49}},
			{Division: Master2, Ages: AgeRange{50, 59}},
			{Division: Master3, Ages: AgeRange{60, 69}},
			{Division: Master4, Ages: AgeRange{70, Unbounded}},
			{Division: Guest, AnyAge: true},
		},
		Classes: map[shared.Sex][]WeightClass{
			shared.SexFemale: classes([]float64{43, 47, 52, 57, 63, 69, 76, 84}),
			shared.SexMale:   classes([]float64{53, 59, 66, 74, 83, 93, 105, 120}),
		},
		RestrictedAges: AgeRange{14, 18},
		NeverBridge:    []Division{SubJunior, Master3, Master4},
		BridgeWildcard: Guest,
		BridgePairs: [][2]Division{
			{Open, Junior},
			{Open, Master1},
			{Open, Master2},
		},
	}
}

// classes builds a class list from upper bounds. The first class is
// restricted and a final open-ended class is appended above the last bound.
func classes(limits []float64) []WeightClass {
	out := make([]WeightClass, 0, len(limits)+1)
	for i, l := range limits {
		out = append(out, WeightClass{
			Name:       formatKg(l),
			Limit:      l,
			Restricted: i == 0,
		})
	}
	last := limits[len(limits)-1]
	out = append(out, WeightClass{Name: "+" + formatKg(last), Limit: last, OpenEnded: true})
	return out
}

// AgeOf returns the athlete's age in completed years as of the given date.
func AgeOf(birthDate, asOf time.Time) int {
	return timeutil.AgeOn(birthDate, asOf)
}

// DivisionsFor returns every division whose range contains age, in
// canonical order. Guest is always included.
func (r *Rules) DivisionsFor(age int) []Division {
	out := make([]Division, 0, 3)
	for _, d := range r.Divisions {
		if d.AnyAge || d.Ages.Contains(age) {
			out = append(out, d.Division)
		}
	}
	return out
}

// IsEligible reports whether age qualifies for division d.
func (r *Rules) IsEligible(d Division, age int) bool {
	for _, rule := range r.Divisions {
		if rule.Division == d {
			return rule.AnyAge || rule.Ages.Contains(age)
		}
	}
	return false
}

// WeightClassesFor returns the classes available to an athlete, lightest
// first. Restricted classes are dropped outside RestrictedAges.
func (r *Rules) WeightClassesFor(sex shared.Sex, age int) []WeightClass {
	all := r.Classes[sex]
	out := make([]WeightClass, 0, len(all))
	for _, wc := range all {
		if wc.Restricted && !r.RestrictedAges.Contains(age) {
			continue
		}
		out = append(out, wc)
	}
	return out
}

// FindClass looks up a class by name within a sex, ignoring eligibility.
func (r *Rules) FindClass(sex shared.Sex, name string) (WeightClass, bool) {
	name = normalizeClassName(name)
	for _, wc := range r.Classes[sex] {
		if wc.Name == name {
			return wc, true
		}
	}
	return WeightClass{}, false
}

// ClassForBodyweight returns the lightest class that holds bodyweight.
func (r *Rules) ClassForBodyweight(sex shared.Sex, bodyweight float64) (WeightClass, bool) {
	if bodyweight <= 0 {
		return WeightClass{}, false
	}
	for _, wc := range r.Classes[sex] {
		if wc.Holds(bodyweight) {
			return wc, true
		}
	}
	return WeightClass{}, false
}

// CanBridge reports whether two divisions may share one entry.
// The relation is symmetric and never holds for a division with itself.
func (r *Rules) CanBridge(a, b Division) bool {
	if a == b {
		return false
	}
	if r.neverBridges(a) || r.neverBridges(b) {
		return false
	}
	if r.BridgeWildcard != "" && (a == r.BridgeWildcard || b == r.BridgeWildcard) {
		return r.known(a) && r.known(b)
	}
	for _, p := range r.BridgePairs {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}
	return false
}

// BridgeOptionsFor returns the divisions that may bridge with d for an
// athlete of the given age, in canonical order.
func (r *Rules) BridgeOptionsFor(d Division, age int) []Division {
	var out []Division
	for _, rule := range r.Divisions {
		if !r.CanBridge(d, rule.Division) {
			continue
		}
		if !r.IsEligible(rule.Division, age) {
			continue
		}
		out = append(out, rule.Division)
	}
	return out
}

func (r *Rules) neverBridges(d Division) bool {
	for _, n := range r.NeverBridge {
		if n == d {
			return true
		}
	}
	return false
}

func (r *Rules) known(d Division) bool {
	for _, rule := range r.Divisions {
		if rule.Division == d {
			return true
		}
	}
	return false
}

// AllDivisions returns the configured divisions in canonical order.
func (r *Rules) AllDivisions() []Division {
	out := make([]Division, len(r.Divisions))
	for i, d := range r.Divisions {
		out[i] = d.Division
	}
	return out
}

// ParseDivision matches a division label case-insensitively, accepting
// common spellings such as "Sub-Junior" and "Master 1".
func (r *Rules) ParseDivision(s string) (Division, bool) {
	norm := strings.NewReplacer("-", "", " ", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range r.Divisions {
		if strings.ToLower(string(d.Division)) == norm {
			return d.Division, true
		}
	}
	return "", false
}
