package domain

import "time"

// Context is the typed payload carried inside a session. The cart,
// payment reference and customer fields are compile-time known; Extra is
// reserved for truly ad hoc values set by transports or collaborators.
type Context struct {
	Order        *CurrentOrder `json:"order,omitempty" mapstructure:"order"`
	Menu         []MenuSlot    `json:"menu,omitempty" mapstructure:"menu"`
	PaymentRef   string        `json:"payment_ref,omitempty" mapstructure:"payment_ref"`
	OrderID      string        `json:"order_id,omitempty" mapstructure:"order_id"`
	CustomerName string        `json:"customer_name,omitempty" mapstructure:"customer_name"`
	Extra        map[string]any `json:"extra,omitempty" mapstructure:"extra"`
}

// Clone returns a deep copy. Transition actions receive a context and
// return a replacement; cloning keeps them free of shared mutable state.
func (c Context) Clone() Context {
	cp := c
	cp.Order = c.Order.Clone()
	if c.Menu != nil {
		cp.Menu = make([]MenuSlot, len(c.Menu))
		copy(cp.Menu, c.Menu)
	}
	if c.Extra != nil {
		cp.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// MenuSlotAt returns the menu entry at the given 1-based position.
func (c Context) MenuSlotAt(position int) (MenuSlot, bool) {
	for _, slot := range c.Menu {
		if slot.Position == position {
			return slot, true
		}
	}
	return MenuSlot{}, false
}

// ConversationSession is the canonical per-phone conversation state.
// Exactly one logical session exists per phone number at any instant.
type ConversationSession struct {
	Phone        string            `json:"phone"`
	State        ConversationState `json:"state"`
	Context      Context           `json:"context"`
	CustomerID   string            `json:"customer_id,omitempty"`
	LastActivity time.Time         `json:"last_activity"`
}

// NewSession creates a fresh session in the given state.
func NewSession(phone string, state ConversationState) *ConversationSession {
	return &ConversationSession{
		Phone:        phone,
		State:        state,
		LastActivity: time.Now().UTC(),
	}
}

// Touch advances LastActivity, keeping it monotonic even when the wall
// clock stalls between two writes.
func (s *ConversationSession) Touch() {
	now := time.Now().UTC()
	if !now.After(s.LastActivity) {
		now = s.LastActivity.Add(time.Millisecond)
	}
	s.LastActivity = now
}

// ExpiredAt reports whether the session's TTL has elapsed at the given
// instant.
func (s *ConversationSession) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return s.LastActivity.Add(ttl).Before(now)
}
