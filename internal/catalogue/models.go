package catalogue

import (
	"time"

	"sahaya/pkg/domain"
)

// Status is the lifecycle state of a scheme. Transitions are one-directional
// except suspended -> active (reinstatement), which is explicit and audited.
// A discontinued scheme is never deleted; it transitions to inactive and all
// prior versions remain retrievable.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a status value from an untrusted source.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(raw), true
	}
	return "", false
}

// CanTransition reports whether a status change is allowed. Re-launching an
// inactive scheme requires a new scheme id, so inactive is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusSuspended || to == StatusInactive
	case StatusSuspended:
		return to == StatusActive || to == StatusInactive
	}
	return false
}

// BenefitType classifies what a scheme provides. The eligible-result tie-break
// order among types is policy (default financial > subsidy > loan > service).
type BenefitType string

const (
	BenefitFinancial BenefitType = "financial"
	BenefitSubsidy   BenefitType = "subsidy"
	BenefitLoan      BenefitType = "loan"
	BenefitService   BenefitType = "service"
)

// DefaultBenefitPriority is the built-in tie-break order, highest first.
func DefaultBenefitPriority() []BenefitType {
	return []BenefitType{BenefitFinancial, BenefitSubsidy, BenefitLoan, BenefitService}
}

// Benefit is one entry in a scheme's ordered benefit list.
type Benefit struct {
	Type        BenefitType `json:"type"`
	Description string      `json:"description"`
}

// Deadline is one entry in a scheme's ordered deadline list.
type Deadline struct {
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
}

// LocalizedText holds language variants keyed by language tag. There is no
// restriction on the number of variants.
type LocalizedText map[string]string

// Resolve picks the variant for the given language tag, falling back to "en"
// and then to any variant. Selection only; translation is out of scope.
func (t LocalizedText) Resolve(lang string) string {
	if v, ok := t[lang]; ok {
		return v
	}
	if v, ok := t["en"]; ok {
		return v
	}
	for _, v := range t {
		return v
	}
	return ""
}

func (t LocalizedText) clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Operator is the comparison used by a named predicate.
type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpLt Operator = "lt"
	OpLe Operator = "le"
	OpGt Operator = "gt"
	OpGe Operator = "ge"
	OpIn Operator = "in"
)

// Predicate is an open-ended named criterion: a context field, a comparison
// operator, and a comparison value. For OpIn, Value must be a list.
type Predicate struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

// Range is an inclusive numeric bound pair; a nil side is unconstrained.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v lies within the inclusive bounds.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r *Range) clone() *Range {
	if r == nil {
		return nil
	}
	out := &Range{}
	if r.Min != nil {
		min := *r.Min
		out.Min = &min
	}
	if r.Max != nil {
		max := *r.Max
		out.Max = &max
	}
	return out
}

// EligibilityCriteria is a scheme's rule set. An empty criteria set matches
// every context; OpenToAll makes that explicit for schemes that genuinely
// have no conditions.
type EligibilityCriteria struct {
	AgeRange    *Range      `json:"age_range,omitempty"`
	IncomeRange *Range      `json:"income_range,omitempty"`
	Occupations []string    `json:"occupations,omitempty"`
	States      []string    `json:"states,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Gender      string      `json:"gender,omitempty"`
	Predicates  []Predicate `json:"predicates,omitempty"`
	OpenToAll   bool        `json:"open_to_all,omitempty"`
}

// Count returns the number of declared criteria.
func (c EligibilityCriteria) Count() int {
	n := 0
	if c.AgeRange != nil {
		n++
	}
	if c.IncomeRange != nil {
		n++
	}
	if len(c.Occupations) > 0 {
		n++
	}
	if len(c.States) > 0 {
		n++
	}
	if len(c.Categories) > 0 {
		n++
	}
	if c.Gender != "" {
		n++
	}
	return n + len(c.Predicates)
}

// IsEmpty reports whether no criteria are declared.
func (c EligibilityCriteria) IsEmpty() bool {
	return c.Count() == 0
}

func (c EligibilityCriteria) clone() EligibilityCriteria {
	out := c
	out.AgeRange = c.AgeRange.clone()
	out.IncomeRange = c.IncomeRange.clone()
	out.Occupations = append([]string(nil), c.Occupations...)
	out.States = append([]string(nil), c.States...)
	out.Categories = append([]string(nil), c.Categories...)
	out.Predicates = append([]Predicate(nil), c.Predicates...)
	return out
}

// SchemeRecord is one immutable version of a welfare scheme. Mutation happens
// only by appending version N+1; existing versions are never touched.
type SchemeRecord struct {
	ID          domain.SchemeID     `json:"id"`
	Name        LocalizedText       `json:"name"`
	Description LocalizedText       `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Criteria    EligibilityCriteria `json:"criteria"`
	Benefits    []Benefit           `json:"benefits,omitempty"`
	Documents   []string            `json:"documents,omitempty"`
	Deadlines   []Deadline          `json:"deadlines,omitempty"`
	Status      Status              `json:"status"`
	Version     int64               `json:"version"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Clone deep-copies a record so readers never alias store-owned state.
func (r *SchemeRecord) Clone() *SchemeRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Name = r.Name.clone()
	out.Description = r.Description.clone()
	out.Criteria = r.Criteria.clone()
	out.Benefits = append([]Benefit(nil), r.Benefits...)
	out.Documents = append([]string(nil), r.Documents...)
	out.Deadlines = append([]Deadline(nil), r.Deadlines...)
	return &out
}

// PrimaryBenefitType returns the type of the first listed benefit, used for
// ranking tie-breaks. Schemes without benefits rank after every typed one.
func (r *SchemeRecord) PrimaryBenefitType() BenefitType {
	if len(r.Benefits) == 0 {
		return ""
	}
	return r.Benefits[0].Type
}

// Flag is an advisory administrative-review marker. Flags never alter a
// scheme's status; flagged schemes remain queryable and assessable.
type Flag struct {
	Description string    `json:"description"`
	FlaggedAt   time.Time `json:"flagged_at"`
}
