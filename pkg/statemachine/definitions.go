package statemachine

import (
	"strings"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
	"github.com/google/uuid"
)

// DefaultDefinitions returns the built-in state configuration for the
// ordering flow.
func DefaultDefinitions() map[domain.ConversationState]StateDefinition {
	return map[domain.ConversationState]StateDefinition{
		domain.StateGreeting: {
			Description: "Initial contact, waiting for the customer to engage",
			AllowedTransitions: []domain.ConversationState{
				domain.StateBrowsingProducts,
			},
			InactivityTimeout: 30 * time.Minute,
		},
		domain.StateBrowsingProducts: {
			Description: "Customer is looking at the menu",
			AllowedTransitions: []domain.ConversationState{
				domain.StateBrowsingProducts,
				domain.StateAddingToCart,
				domain.StateReviewingOrder,
				domain.StateGreeting,
			},
			InactivityTimeout: 30 * time.Minute,
		},
		domain.StateAddingToCart: {
			Description: "Customer is building their cart",
			AllowedTransitions: []domain.ConversationState{
				domain.StateAddingToCart,
				domain.StateBrowsingProducts,
				domain.StateReviewingOrder,
			},
			InactivityTimeout: 20 * time.Minute,
		},
		domain.StateReviewingOrder: {
			Description: "Customer is reviewing the cart before confirming",
			AllowedTransitions: []domain.ConversationState{
				domain.StateReviewingOrder,
				domain.StateAddingToCart,
				domain.StateBrowsingProducts,
				domain.StateAwaitingPayment,
			},
			InactivityTimeout: 15 * time.Minute,
		},
		domain.StateAwaitingPayment: {
			Description: "Order confirmed, waiting for proof of payment",
			AllowedTransitions: []domain.ConversationState{
				domain.StatePaymentConfirmation,
				domain.StateBrowsingProducts,
			},
			InactivityTimeout: 60 * time.Minute,
		},
		domain.StatePaymentConfirmation: {
			Description: "Payment submitted, pending verification",
			AllowedTransitions: []domain.ConversationState{
				domain.StateOrderComplete,
				domain.StateAwaitingPayment,
			},
			InactivityTimeout: 60 * time.Minute,
		},
		domain.StateOrderComplete: {
			Description: "Order finished",
			AllowedTransitions: []domain.ConversationState{
				domain.StateGreeting,
				domain.StateBrowsingProducts,
			},
			Terminal:          true,
			InactivityTimeout: 12 * time.Hour,
		},
	}
}

// DefaultTransitions returns the built-in transition table. Candidates
// sharing a (from, trigger) pair are resolved in declaration order, so
// guarded entries must precede their unguarded fallbacks.
func DefaultTransitions() []Transition {
	return []Transition{
		// Engagement.
		{From: domain.StateGreeting, To: domain.StateBrowsingProducts, Trigger: domain.TriggerStartConversation},
		{From: domain.StateGreeting, To: domain.StateBrowsingProducts, Trigger: domain.TriggerBrowseProducts},

		// Browsing and cart building.
		{From: domain.StateBrowsingProducts, To: domain.StateAddingToCart, Trigger: domain.TriggerAddToCart, Guard: hasItems},
		{From: domain.StateAddingToCart, To: domain.StateAddingToCart, Trigger: domain.TriggerAddToCart, Guard: hasItems},
		{From: domain.StateAddingToCart, To: domain.StateBrowsingProducts, Trigger: domain.TriggerGoBack},
		{From: domain.StateAddingToCart, To: domain.StateAddingToCart, Trigger: domain.TriggerRemoveFromCart},

		// Viewing the cart: a non-empty cart moves to review, an empty
		// one stays put (the orchestrator tells the customer it is empty).
		{From: domain.StateBrowsingProducts, To: domain.StateReviewingOrder, Trigger: domain.TriggerViewCart, Guard: hasItems},
		{From: domain.StateBrowsingProducts, To: domain.StateBrowsingProducts, Trigger: domain.TriggerViewCart},
		{From: domain.StateAddingToCart, To: domain.StateReviewingOrder, Trigger: domain.TriggerViewCart, Guard: hasItems},

		// Checkout.
		{From: domain.StateBrowsingProducts, To: domain.StateReviewingOrder, Trigger: domain.TriggerCheckout, Guard: hasItems},
		{From: domain.StateAddingToCart, To: domain.StateReviewingOrder, Trigger: domain.TriggerCheckout, Guard: hasItems},
		{From: domain.StateReviewingOrder, To: domain.StateReviewingOrder, Trigger: domain.TriggerRemoveFromCart},
		{From: domain.StateReviewingOrder, To: domain.StateAddingToCart, Trigger: domain.TriggerAddToCart, Guard: hasItems},
		{From: domain.StateReviewingOrder, To: domain.StateBrowsingProducts, Trigger: domain.TriggerGoBack},

		// Confirmation mints the payment reference.
		{
			From:    domain.StateReviewingOrder,
			To:      domain.StateAwaitingPayment,
			Trigger: domain.TriggerConfirmOrder,
			Guard:   hasPositiveTotal,
			Action:  mintPaymentRef,
		},

		// Payment.
		{From: domain.StateAwaitingPayment, To: domain.StatePaymentConfirmation, Trigger: domain.TriggerSubmitPayment, Guard: hasPaymentRef},
		{From: domain.StatePaymentConfirmation, To: domain.StateOrderComplete, Trigger: domain.TriggerPaymentVerified},
		{From: domain.StatePaymentConfirmation, To: domain.StateAwaitingPayment, Trigger: domain.TriggerPaymentRejected},

		// Cancellation purges the cart from any in-flight state.
		{From: domain.StateAddingToCart, To: domain.StateBrowsingProducts, Trigger: domain.TriggerCancelOrder, Action: purgeOrder},
		{From: domain.StateReviewingOrder, To: domain.StateBrowsingProducts, Trigger: domain.TriggerCancelOrder, Action: purgeOrder},
		{From: domain.StateAwaitingPayment, To: domain.StateBrowsingProducts, Trigger: domain.TriggerCancelOrder, Action: purgeOrder},

		// Terminal exits clear the finished order's context.
		{From: domain.StateOrderComplete, To: domain.StateGreeting, Trigger: domain.TriggerStartOver, Action: resetContext},
		{From: domain.StateOrderComplete, To: domain.StateBrowsingProducts, Trigger: domain.TriggerBrowseProducts, Action: resetContext},
	}
}

// NewDefault builds a Machine from the built-in configuration.
func NewDefault() (*Machine, error) {
	return New(DefaultDefinitions(), DefaultTransitions())
}

func hasItems(ctx domain.Context) bool {
	return !ctx.Order.IsEmpty()
}

func hasPositiveTotal(ctx domain.Context) bool {
	return !ctx.Order.IsEmpty() && ctx.Order.Total > 0
}

func hasPaymentRef(ctx domain.Context) bool {
	return ctx.PaymentRef != ""
}

// mintPaymentRef stamps a freshly generated payment reference of the
// form PAY-<UUID> onto the context.
func mintPaymentRef(ctx domain.Context) domain.Context {
	ctx.PaymentRef = "PAY-" + strings.ToUpper(uuid.NewString())
	return ctx
}

func purgeOrder(ctx domain.Context) domain.Context {
	ctx.Order = nil
	ctx.PaymentRef = ""
	ctx.OrderID = ""
	return ctx
}

func resetContext(ctx domain.Context) domain.Context {
	return domain.Context{Menu: ctx.Menu, CustomerName: ctx.CustomerName}
}
