package registration

import (
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// Assigner validates drafts against a competition and the eligibility rules.
type Assigner struct {
	rules *eligibility.Rules
}

// NewAssigner creates an Assigner. A nil rules value uses the defaults.
func NewAssigner(rules *eligibility.Rules) *Assigner {
	if rules == nil {
		rules = eligibility.DefaultRules()
	}
	return &Assigner{rules: rules}
}

// Rules returns the eligibility tables in use.
func (a *Assigner) Rules() *eligibility.Rules {
	return a.rules
}

// Assign validates a new entry. existing holds the athlete's other entries
// in the same competition. The first violated rule is returned as a
// *shared.ValidationError.
func (a *Assigner) Assign(comp Competition, draft Draft, existing []Entry) (*Assignment, error) {
	equipment, err := checkModality(comp, draft.Equipment, existing, "")
	if err != nil {
		return nil, err
	}

	asg, err := a.categorize(comp, draft)
	if err != nil {
		return nil, err
	}
	asg.Equipment = equipment
	return asg, nil
}

// Reassign validates an edit of current. Category checks run against the
// proposed values; a bridge change after the nomination cutoff is rejected
// while every other field stays editable.
func (a *Assigner) Reassign(comp Competition, current Entry, draft Draft, existing []Entry, now time.Time) (*Assignment, error) {
	if draft.Bridge != current.Assignment.Bridge && !comp.BridgeEditable(now) {
		return nil, shared.NewValidationError(shared.RuleBridgeFrozen, "bridge",
			"bridges are frozen from one day before the nomination deadline %s",
			comp.NominationDeadline.Format("2006-01-02"))
	}

	equipment, err := checkModality(comp, draft.Equipment, existing, current.ID)
	if err != nil {
		return nil, err
	}

	asg, err := a.categorize(comp, draft)
	if err != nil {
		return nil, err
	}
	asg.Equipment = equipment
	return asg, nil
}

// categorize runs the weight class, division and bridge checks and prices
// the entry.
func (a *Assigner) categorize(comp Competition, draft Draft) (*Assignment, error) {
	age, err := AgeAt(draft.Athlete, comp)
	if err != nil {
		return nil, err
	}

	wc, err := a.rules.CheckWeightClass(draft.Athlete.Sex, age, draft.WeightClass)
	if err != nil {
		return nil, err
	}

	if err := a.rules.CheckDivision("division", draft.Division, age); err != nil {
		return nil, err
	}

	fee := Fee{Base: comp.BaseFee}
	if draft.Bridge != "" {
		if !comp.AllowsBridging {
			return nil, shared.NewValidationError(shared.RuleBridgeDisabled, "bridge",
				"competition %q does not allow bridging", comp.Name)
		}
		if err := a.rules.CheckBridge(draft.Division, draft.Bridge, age); err != nil {
			return nil, err
		}
		fee.Bridge = comp.BridgeFee
	}
	fee.Total = fee.Base + fee.Bridge

	return &Assignment{
		WeightClass: wc,
		Division:    draft.Division,
		Bridge:      draft.Bridge,
		Age:         age,
		Fee:         fee,
	}, nil
}

// checkModality resolves the entry's equipment and enforces one entry per
// modality per athlete. skipID excludes the entry being edited.
func checkModality(comp Competition, requested shared.Equipment, existing []Entry, skipID string) (shared.Equipment, error) {
	var equipment shared.Equipment

	switch comp.Modality {
	case shared.ModalityClassicOnly, shared.ModalityEquippedOnly:
		forced, _ := comp.Modality.Forced()
		if requested != "" && requested != forced {
			return "", shared.NewValidationError(shared.RuleModalityMismatch, "equipment",
				"competition is %s, cannot enter %s", comp.Modality, requested)
		}
		equipment = forced
	case shared.ModalityBoth:
		if !requested.IsValid() {
			return "", shared.NewValidationError(shared.RuleModalityRequired, "equipment",
				"competition runs both modalities, choose Classic or Equipped")
		}
		equipment = requested
	default:
		return "", shared.NewValidationError(shared.RuleModalityMismatch, "modality",
			"competition has unknown modality %q", comp.Modality)
	}

	for _, e := range existing {
		if skipID != "" && e.ID == skipID {
			continue
		}
		if e.Assignment.Equipment == equipment {
			return "", shared.NewValidationError(shared.RuleDuplicateModality, "equipment",
				"athlete already has a %s entry in this competition", equipment)
		}
	}

	return equipment, nil
}
