package domain

// ConversationState identifies where a customer is in the ordering flow.
type ConversationState string

const (
	StateGreeting            ConversationState = "greeting"
	StateBrowsingProducts    ConversationState = "browsing_products"
	StateAddingToCart        ConversationState = "adding_to_cart"
	StateReviewingOrder      ConversationState = "reviewing_order"
	StateAwaitingPayment     ConversationState = "awaiting_payment"
	StatePaymentConfirmation ConversationState = "payment_confirmation"
	StateOrderComplete       ConversationState = "order_complete"
)

// AllStates lists every conversation state. Used by startup validation
// and by the stats endpoint to produce a stable by-state breakdown.
var AllStates = []ConversationState{
	StateGreeting,
	StateBrowsingProducts,
	StateAddingToCart,
	StateReviewingOrder,
	StateAwaitingPayment,
	StatePaymentConfirmation,
	StateOrderComplete,
}

// Trigger is a named event the state machine matches against
// (from-state, trigger) to select a transition.
type Trigger string

const (
	TriggerStartConversation Trigger = "start_conversation"
	TriggerBrowseProducts    Trigger = "browse_products"
	TriggerAddToCart         Trigger = "add_to_cart"
	TriggerViewCart          Trigger = "view_cart"
	TriggerRemoveFromCart    Trigger = "remove_from_cart"
	TriggerCheckout          Trigger = "checkout"
	TriggerConfirmOrder      Trigger = "confirm_order"
	TriggerSubmitPayment     Trigger = "submit_payment"
	TriggerPaymentVerified   Trigger = "payment_verified"
	TriggerPaymentRejected   Trigger = "payment_rejected"
	TriggerCancelOrder       Trigger = "cancel_order"
	TriggerGoBack            Trigger = "go_back"
	TriggerStartOver         Trigger = "start_over"
)
