package session

// SensitivityPolicy classifies attributes as ordinary or sensitive. Sensitive
// attributes are stored only after explicit confirmation in the current
// session. Modeled as tagged data so adding a sensitive field is a one-line
// policy change, not a scattered check.
type SensitivityPolicy struct {
	sensitive map[string]struct{}
}

// DefaultSensitivityPolicy marks income and category sensitive. These two are
// always sensitive; WithSensitive extends the set.
func DefaultSensitivityPolicy() *SensitivityPolicy {
	return (&SensitivityPolicy{sensitive: make(map[string]struct{})}).
		WithSensitive(AttrIncome, AttrCategory)
}

// WithSensitive marks additional attributes sensitive and returns the policy
// for chaining.
func (p *SensitivityPolicy) WithSensitive(names ...string) *SensitivityPolicy {
	for _, name := range names {
		p.sensitive[name] = struct{}{}
	}
	return p
}

// IsSensitive reports whether the attribute requires explicit confirmation.
func (p *SensitivityPolicy) IsSensitive(name string) bool {
	_, ok := p.sensitive[name]
	return ok
}
