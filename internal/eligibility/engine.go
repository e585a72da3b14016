package eligibility

import (
	"fmt"
	"strings"

	"sahaya/internal/catalogue"
	"sahaya/internal/session"
	"sahaya/pkg/domain"
)

// This file is pure domain logic: no I/O, no side effects. The engine never
// converts an unknown criterion into a guessed pass or fail; unknown is
// always reported explicitly.

// Verdict is the outcome of one criterion against one context.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictFail    Verdict = "fail"
	VerdictUnknown Verdict = "unknown"
)

// CriterionResult explains one criterion's evaluation: what was checked,
// which attribute it used, the value seen (nil when absent), and the verdict.
type CriterionResult struct {
	Criterion string  `json:"criterion"`
	Attribute string  `json:"attribute"`
	Value     any     `json:"value,omitempty"`
	Verdict   Verdict `json:"verdict"`
}

// Evaluation is the full single-scheme verdict.
type Evaluation struct {
	SchemeID            domain.SchemeID
	Eligible            bool
	Confidence          float64
	MissingRequirements []string
	Criteria            []CriterionResult
}

// malformedCriterionError marks a scheme whose rule set cannot be evaluated.
// The assessment isolates such schemes instead of aborting.
type malformedCriterionError struct {
	criterion string
	reason    string
}

func (e *malformedCriterionError) Error() string {
	return fmt.Sprintf("malformed criterion %s: %s", e.criterion, e.reason)
}

// Evaluate runs a scheme's criteria against a context.
//
// Rules:
//   - a criterion whose attribute is absent is unknown, not failed
//   - eligible = AND of all known criteria, provided at least one is known
//   - all criteria unknown => eligible=false, confidence 0, missing listed
//   - confidence = known/total, floored at confidenceFloor
//   - zero criteria (or open-to-all) => eligible with confidence 1.0
func Evaluate(record *catalogue.SchemeRecord, userCtx session.UserContext, confidenceFloor float64) (*Evaluation, error) {
	eval := &Evaluation{SchemeID: record.ID}

	if record.Criteria.IsEmpty() {
		eval.Eligible = true
		eval.Confidence = 1.0
		return eval, nil
	}

	results, err := evaluateCriteria(record.Criteria, userCtx)
	if err != nil {
		return nil, err
	}
	eval.Criteria = results

	known, failed := 0, 0
	for _, r := range results {
		switch r.Verdict {
		case VerdictUnknown:
			eval.MissingRequirements = append(eval.MissingRequirements, r.Attribute)
		case VerdictFail:
			known++
			failed++
		case VerdictPass:
			known++
		}
	}

	total := len(results)
	eval.Eligible = known > 0 && failed == 0
	eval.Confidence = float64(known) / float64(total)
	if known > 0 && eval.Confidence < confidenceFloor {
		eval.Confidence = confidenceFloor
	}
	return eval, nil
}

func evaluateCriteria(criteria catalogue.EligibilityCriteria, userCtx session.UserContext) ([]CriterionResult, error) {
	var results []CriterionResult

	if criteria.AgeRange != nil {
		results = append(results, rangeResult("age_range", session.AttrAge, *criteria.AgeRange, userCtx))
	}
	if criteria.IncomeRange != nil {
		results = append(results, rangeResult("income_range", session.AttrIncome, *criteria.IncomeRange, userCtx))
	}
	if len(criteria.Occupations) > 0 {
		results = append(results, setResult("occupation", session.AttrOccupation, criteria.Occupations, userCtx))
	}
	if len(criteria.States) > 0 {
		results = append(results, setResult("state", session.AttrState, criteria.States, userCtx))
	}
	if len(criteria.Categories) > 0 {
		results = append(results, setResult("category", session.AttrCategory, criteria.Categories, userCtx))
	}
	if criteria.Gender != "" {
		results = append(results, setResult("gender", session.AttrGender, []string{criteria.Gender}, userCtx))
	}
	for _, p := range criteria.Predicates {
		r, err := predicateResult(p, userCtx)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func rangeResult(name, attr string, bounds catalogue.Range, userCtx session.UserContext) CriterionResult {
	result := CriterionResult{Criterion: name, Attribute: attr}
	value, ok := userCtx[attr]
	if !ok {
		result.Verdict = VerdictUnknown
		return result
	}
	result.Value = value
	num, ok := toFloat(value)
	if !ok {
		// Declared but not numeric: cannot be compared, treat as unknown.
		result.Verdict = VerdictUnknown
		return result
	}
	if bounds.Contains(num) {
		result.Verdict = VerdictPass
	} else {
		result.Verdict = VerdictFail
	}
	return result
}

func setResult(name, attr string, allowed []string, userCtx session.UserContext) CriterionResult {
	result := CriterionResult{Criterion: name, Attribute: attr}
	value, ok := userCtx[attr]
	if !ok {
		result.Verdict = VerdictUnknown
		return result
	}
	result.Value = value
	str, ok := value.(string)
	if !ok {
		result.Verdict = VerdictUnknown
		return result
	}
	result.Verdict = VerdictFail
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, str) {
			result.Verdict = VerdictPass
			break
		}
	}
	return result
}

func predicateResult(p catalogue.Predicate, userCtx session.UserContext) (CriterionResult, error) {
	result := CriterionResult{Criterion: "predicate:" + p.Field, Attribute: p.Field}
	value, ok := userCtx[p.Field]
	if !ok {
		result.Verdict = VerdictUnknown
		return result, nil
	}
	result.Value = value

	switch p.Op {
	case catalogue.OpEq, catalogue.OpNe:
		equal, ok := looseEqual(value, p.Value)
		if !ok {
			result.Verdict = VerdictUnknown
			return result, nil
		}
		if equal == (p.Op == catalogue.OpEq) {
			result.Verdict = VerdictPass
		} else {
			result.Verdict = VerdictFail
		}
	case catalogue.OpLt, catalogue.OpLe, catalogue.OpGt, catalogue.OpGe:
		want, ok := toFloat(p.Value)
		if !ok {
			return result, &malformedCriterionError{result.Criterion, "comparison value is not numeric"}
		}
		have, ok := toFloat(value)
		if !ok {
			result.Verdict = VerdictUnknown
			return result, nil
		}
		if compareOrdered(have, want, p.Op) {
			result.Verdict = VerdictPass
		} else {
			result.Verdict = VerdictFail
		}
	case catalogue.OpIn:
		members, ok := toList(p.Value)
		if !ok {
			return result, &malformedCriterionError{result.Criterion, "membership value is not a list"}
		}
		result.Verdict = VerdictFail
		for _, member := range members {
			if equal, ok := looseEqual(value, member); ok && equal {
				result.Verdict = VerdictPass
				break
			}
		}
	default:
		return result, &malformedCriterionError{result.Criterion, "unknown operator " + string(p.Op)}
	}
	return result, nil
}

func compareOrdered(have, want float64, op catalogue.Operator) bool {
	switch op {
	case catalogue.OpLt:
		return have < want
	case catalogue.OpLe:
		return have <= want
	case catalogue.OpGt:
		return have > want
	default:
		return have >= want
	}
}

// looseEqual compares an attribute value against a criterion value across the
// numeric/string/bool types JSON decoding produces. The second return is
// false when the types cannot be compared at all.
func looseEqual(have, want any) (bool, bool) {
	if hn, ok := toFloat(have); ok {
		if wn, ok := toFloat(want); ok {
			return hn == wn, true
		}
		return false, false
	}
	switch h := have.(type) {
	case string:
		if w, ok := want.(string); ok {
			return strings.EqualFold(h, w), true
		}
	case bool:
		if w, ok := want.(bool); ok {
			return h == w, true
		}
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
