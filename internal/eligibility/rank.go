package eligibility

import (
	"sort"

	"sahaya/internal/catalogue"
	"sahaya/pkg/domain"
)

// Result is one scheme's assessment outcome, produced fresh on every call and
// never cached across context mutations.
type Result struct {
	SchemeID            domain.SchemeID       `json:"scheme_id"`
	SchemeName          string                `json:"scheme_name"`
	Eligible            bool                  `json:"eligible"`
	Confidence          float64               `json:"confidence"`
	MissingRequirements []string              `json:"missing_requirements,omitempty"`
	RequiredDocuments   []string              `json:"required_documents,omitempty"`
	BenefitType         catalogue.BenefitType `json:"benefit_type,omitempty"`
}

// Ranker orders assessment results. The benefit-type priority is policy,
// injected at construction rather than hardcoded in the comparator.
type Ranker struct {
	priority map[catalogue.BenefitType]int
}

// NewRanker builds a ranker from a priority order, highest first. Types not
// listed (and schemes without benefits) sort after every listed type.
func NewRanker(order []catalogue.BenefitType) *Ranker {
	if len(order) == 0 {
		order = catalogue.DefaultBenefitPriority()
	}
	priority := make(map[catalogue.BenefitType]int, len(order))
	for i, t := range order {
		priority[t] = i
	}
	return &Ranker{priority: priority}
}

func (r *Ranker) rank(t catalogue.BenefitType) int {
	if p, ok := r.priority[t]; ok {
		return p
	}
	return len(r.priority)
}

// Sort orders results: eligible before ineligible; within eligible by
// descending confidence then benefit-type priority; within ineligible by
// descending confidence (closest matches first). Scheme ID is the final
// tie-break so identical inputs always produce identical orderings.
func (r *Ranker) Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Eligible {
			if pa, pb := r.rank(a.BenefitType), r.rank(b.BenefitType); pa != pb {
				return pa < pb
			}
		}
		return a.SchemeID < b.SchemeID
	})
}
