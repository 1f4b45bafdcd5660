package eligibility

import (
	"strconv"
	"strings"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// CheckWeightClass validates a class choice and returns the resolved class.
func (r *Rules) CheckWeightClass(sex shared.Sex, age int, name string) (WeightClass, error) {
	if !sex.IsValid() {
		return WeightClass{}, shared.NewValidationError(shared.RuleSexUnknown, "sex", "unknown sex %q", sex)
	}

	wc, ok := r.FindClass(sex, name)
	if !ok {
		return WeightClass{}, shared.NewValidationError(shared.RuleWeightClassUnknown, "weight_class",
			"no %s class named %q", sex, name)
	}

	if wc.Restricted && !r.RestrictedAges.Contains(age) {
		return WeightClass{}, shared.NewValidationError(shared.RuleWeightClassRestricted, "weight_class",
			"class %s is restricted to ages %d-%d, athlete is %d",
			wc.Name, r.RestrictedAges.Min, r.RestrictedAges.Max, age)
	}

	return wc, nil
}

// CheckDivision validates that age qualifies for d.
func (r *Rules) CheckDivision(field string, d Division, age int) error {
	if !r.known(d) {
		return shared.NewValidationError(shared.RuleDivisionUnknown, field, "unknown division %q", d)
	}
	if !r.IsEligible(d, age) {
		return shared.NewValidationError(shared.RuleDivisionAge, field,
			"age %d is not eligible for %s", age, d)
	}
	return nil
}

// CheckBridge validates a bridge from primary to bridge for an athlete of age.
func (r *Rules) CheckBridge(primary, bridge Division, age int) error {
	if !r.CanBridge(primary, bridge) {
		return shared.NewValidationError(shared.RuleBridgePair, "bridge",
			"%s cannot be bridged with %s", primary, bridge)
	}
	return r.CheckDivision("bridge", bridge, age)
}

func formatKg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalizeClassName accepts "83", "83kg", "83.0" and "+120 kg".
func normalizeClassName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, "kg")
	n = strings.TrimSpace(n)

	plus := strings.HasPrefix(n, "+")
	n = strings.TrimPrefix(n, "+")
	if f, err := strconv.ParseFloat(n, 64); err == nil {
		n = formatKg(f)
	}
	if plus {
		return "+" + n
	}
	return n
}
