package domain

// Intent is the closed set of meanings the parser can recognize.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentStart        Intent = "start"
	IntentBrowse       Intent = "browse"
	IntentAddToCart    Intent = "add_to_cart"
	IntentViewCart     Intent = "view_cart"
	IntentRemoveItem   Intent = "remove_item"
	IntentCheckout     Intent = "checkout"
	IntentConfirm      Intent = "confirm"
	IntentDeny         Intent = "deny"
	IntentCancel       Intent = "cancel"
	IntentPaymentProof Intent = "payment_proof"
	IntentGoBack       Intent = "go_back"
	IntentHelp         Intent = "help"
	IntentUnknown      Intent = "unknown"
)

// EntityType identifies the kind of value extracted from the text.
type EntityType string

const (
	EntityProductName      EntityType = "product_name"
	EntityQuantity         EntityType = "quantity"
	EntityPhoneNumber      EntityType = "phone_number"
	EntityPaymentReference EntityType = "payment_reference"
	EntityAmount           EntityType = "amount"
)

// Entity is a typed value extracted from the message text.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
}

// ParsedInput is the ephemeral result of parsing one inbound message.
// It is never persisted.
type ParsedInput struct {
	Text       string   `json:"text"`
	Intent     Intent   `json:"intent"`
	Entities   []Entity `json:"entities"`
	Confidence float64  `json:"confidence"`

	// Trigger is the state-machine event the intent maps to, empty when
	// the intent has no transition meaning in the caller's state.
	Trigger Trigger `json:"trigger,omitempty"`
}

// Entity returns the first entity of the given type.
func (p ParsedInput) Entity(t EntityType) (Entity, bool) {
	for _, e := range p.Entities {
		if e.Type == t {
			return e, true
		}
	}
	return Entity{}, false
}
