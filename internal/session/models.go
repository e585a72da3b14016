package session

import (
	"time"

	"sahaya/pkg/domain"
)

// Well-known attribute names. The context is open-ended; these constants
// exist so the eligibility engine and the sensitivity policy agree on
// spelling.
const (
	AttrAge           = "age"
	AttrIncome        = "income"
	AttrGender        = "gender"
	AttrOccupation    = "occupation"
	AttrState         = "state"
	AttrDistrict      = "district"
	AttrCategory      = "category"
	AttrFamilySize    = "family_size"
	AttrLandOwnership = "land_ownership"
)

// UserContext maps attribute names to declared values. Values are float64,
// string, or bool; an absent key means unknown. The session exclusively owns
// its context: no other session or administrative process reads or writes it.
type UserContext map[string]any

// Clone copies the context so callers never alias store-owned state.
func (c UserContext) Clone() UserContext {
	if c == nil {
		return nil
	}
	out := make(UserContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Session is one citizen conversation. The confirmation record tracks which
// sensitive attributes the citizen has explicitly confirmed, each with its
// confirmation timestamp.
type Session struct {
	ID                domain.SessionID     `json:"id"`
	PreferredLanguage string               `json:"preferred_language,omitempty"`
	Context           UserContext          `json:"context"`
	Confirmations     map[string]time.Time `json:"confirmations"`
	CreatedAt         time.Time            `json:"created_at"`
	LastActivityAt    time.Time            `json:"last_activity_at"`
}

// Clone deep-copies the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Context = s.Context.Clone()
	out.Confirmations = make(map[string]time.Time, len(s.Confirmations))
	for k, v := range s.Confirmations {
		out.Confirmations[k] = v
	}
	return &out
}

// erase wipes context and confirmation record in place. Erasure is the hard
// privacy guarantee behind endSession and the idle sweep: once called, no
// attribute value is recoverable from this struct.
func (s *Session) erase() {
	for k := range s.Context {
		delete(s.Context, k)
	}
	for k := range s.Confirmations {
		delete(s.Confirmations, k)
	}
}
