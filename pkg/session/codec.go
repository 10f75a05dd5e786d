package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/ports"
)

// KeyPrefix is the cache key convention for conversation sessions.
const KeyPrefix = "conversation:session:"

func cacheKey(phone string) string {
	return KeyPrefix + phone
}

// The durable schema uses a narrower state vocabulary than the internal
// enumeration. Both directions are fixed, exhaustive tables; changing
// either without the other is a configuration error caught by tests.
const (
	storageGreeting  = "greeting"
	storageBrowsing  = "browsing"
	storageCart      = "cart"
	storagePayment   = "payment"
	storageCompleted = "completed"
)

var stateToStorage = map[domain.ConversationState]string{
	domain.StateGreeting:            storageGreeting,
	domain.StateBrowsingProducts:    storageBrowsing,
	domain.StateAddingToCart:        storageCart,
	domain.StateReviewingOrder:      storageCart,
	domain.StateAwaitingPayment:     storagePayment,
	domain.StatePaymentConfirmation: storagePayment,
	domain.StateOrderComplete:       storageCompleted,
}

// stateFromStorage restores a durable row to the internal enumeration.
// The folding in stateToStorage is lossy: ADDING_TO_CART and
// REVIEWING_ORDER both store as "cart" and restore as ADDING_TO_CART,
// which is the safe end of the pair (the customer re-reviews before
// confirming). Same reasoning for the payment pair.
var stateFromStorage = map[string]domain.ConversationState{
	storageGreeting:  domain.StateGreeting,
	storageBrowsing:  domain.StateBrowsingProducts,
	storageCart:      domain.StateAddingToCart,
	storagePayment:   domain.StateAwaitingPayment,
	storageCompleted: domain.StateOrderComplete,
}

// EncodeState maps an internal state to the durable vocabulary.
func EncodeState(state domain.ConversationState) string {
	if s, ok := stateToStorage[state]; ok {
		return s
	}
	return storageGreeting
}

// DecodeState maps a durable state back to the internal enumeration.
func DecodeState(state string) domain.ConversationState {
	if s, ok := stateFromStorage[state]; ok {
		return s
	}
	return domain.StateGreeting
}

// encodeCache serializes the full session for the cache tier. The cache
// keeps the fine-grained state, so a cache hit round-trips losslessly.
func encodeCache(s *domain.ConversationSession) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	return string(data), nil
}

func decodeCache(value string) (*domain.ConversationSession, error) {
	var s domain.ConversationSession
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// toStored converts a session to its durable representation,
// recomputing expires_at from last activity and the TTL.
func toStored(s *domain.ConversationSession, ttl time.Duration) (*ports.StoredSession, error) {
	contextJSON, err := json.Marshal(s.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session context: %w", err)
	}
	return &ports.StoredSession{
		Phone:        s.Phone,
		State:        EncodeState(s.State),
		ContextJSON:  contextJSON,
		CustomerID:   s.CustomerID,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.LastActivity.Add(ttl),
	}, nil
}

// fromStored reconstructs the in-memory session shape from a durable row.
func fromStored(row *ports.StoredSession) (*domain.ConversationSession, error) {
	s := &domain.ConversationSession{
		Phone:        row.Phone,
		State:        DecodeState(row.State),
		CustomerID:   row.CustomerID,
		LastActivity: row.LastActivity,
	}
	if len(row.ContextJSON) > 0 {
		if err := json.Unmarshal(row.ContextJSON, &s.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session context: %w", err)
		}
	}
	return s, nil
}
