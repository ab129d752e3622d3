package domain

import "time"

// WizardKind identifies which multi-step flow a session is currently in.
type WizardKind string

const (
	WizardNone         WizardKind = "none"
	WizardAuth         WizardKind = "wb-auth"
	WizardSlotSearch   WizardKind = "slot-search"
	WizardAutobookFrom WizardKind = "autobook-from-search"
	WizardAutobookNew  WizardKind = "autobook-new"
	WizardStockMove    WizardKind = "stock-move"
)

// StateID identifies a step inside a wizard. The empty wizard owns only StateIdle.
type StateID string

const (
	StateIdle StateID = "idle"

	// wb-auth
	StateAuthWaitPhone StateID = "wait_phone"
	StateAuthWaitCode  StateID = "wait_code"

	// slot-search
	StateSlotWarehouse  StateID = "warehouse"
	StateSlotSupplyType StateID = "supply_type"
	StateSlotMaxCoef    StateID = "max_coef"
	StateSlotLogistics  StateID = "logistics"
	StateSlotPeriod     StateID = "period"
	StateSlotLeadTime   StateID = "lead_time"
	StateSlotWeekdays   StateID = "weekdays"
	StateSlotConfirm    StateID = "confirm"

	// autobook-from-search
	StateABChooseAccount StateID = "choose_account"
	StateABChooseTransit StateID = "choose_transit"
	StateABChooseDraft   StateID = "choose_draft"
	StateABConfirm       StateID = "confirm"

	// autobook-new
	StateABNewChooseAccount StateID = "new_choose_account"
	StateABNewChooseDraft   StateID = "new_choose_draft"
	StateABNewChooseRequest StateID = "new_choose_request"
	StateABNewConfirm       StateID = "new_confirm"

	// stock-move
	StateMoveChooseAccount StateID = "choose_account"
	StateMoveChooseArticle StateID = "choose_article"
	StateMoveChooseFrom    StateID = "choose_from_warehouse"
	StateMoveChooseTo      StateID = "choose_to_warehouse"
	StateMoveChooseQty     StateID = "choose_qty"
	StateMoveConfirm       StateID = "confirm"
)

// Session is the per-user conversational state: the current wizard position
// plus a scratchpad of answers collected so far.
//
// Invariant: Wizard == WizardNone implies State == StateIdle, and the
// scratchpad is cleared whenever a wizard starts so values from a previous
// flow can never leak into the next one.
type Session struct {
	UserID    string         `json:"user_id"`
	Wizard    WizardKind     `json:"wizard"`
	State     StateID        `json:"state"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewSession creates an idle session for the user.
func NewSession(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:    userID,
		Wizard:    WizardNone,
		State:     StateIdle,
		Data:      make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Begin enters a wizard at the given state, dropping every scratchpad entry
// left over from whatever flow ran before.
func (s *Session) Begin(kind WizardKind, state StateID) {
	s.Wizard = kind
	s.State = state
	s.Data = make(map[string]any)
	s.UpdatedAt = time.Now().UTC()
}

// Reset returns the session to idle and clears the scratchpad.
func (s *Session) Reset() {
	s.Wizard = WizardNone
	s.State = StateIdle
	s.Data = make(map[string]any)
	s.UpdatedAt = time.Now().UTC()
}

// SetState moves the session to another step of the current wizard.
func (s *Session) SetState(state StateID) {
	s.State = state
	s.UpdatedAt = time.Now().UTC()
}

// Set stores a scratchpad value.
func (s *Session) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
	s.UpdatedAt = time.Now().UTC()
}

// Get returns a scratchpad value.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// GetString returns a scratchpad value as a string, or "" if absent or not a string.
func (s *Session) GetString(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// GetInt returns a scratchpad value as an int, or 0 if absent. JSON
// round-trips turn numbers into float64, so both representations are accepted.
func (s *Session) GetInt(key string) int {
	switch v := s.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// GetStrings returns a scratchpad value as a string slice, tolerating the
// []any shape produced by a JSON round-trip.
func (s *Session) GetStrings(key string) []string {
	switch v := s.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// In reports whether the session is at the given wizard step.
func (s *Session) In(kind WizardKind, state StateID) bool {
	return s.Wizard == kind && s.State == state
}
