package balcao

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/balcao/pkg/cart"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/parser"
)

const (
	msgStorageApology = "Sorry, we're having a technical issue on our side. Please try again in a moment."
	msgCatalogApology = "Sorry, I couldn't check our catalog just now. Please try again."
	msgOrderApology   = "Sorry, I couldn't place your order just now. Please try again in a moment."
	msgWhichProduct   = "Which product would you like? You can send a menu number or the product name."
	msgCartEmpty      = "Your cart is empty. Send \"menu\" to see what we have."
)

func rejectionText(err error) string {
	switch {
	case errors.Is(err, parser.ErrEmptyInput):
		return "I didn't receive any text. What would you like to order?"
	case errors.Is(err, parser.ErrInputTooLarge):
		return "That message is a bit too long for me. Could you shorten it?"
	default:
		return "Sorry, I couldn't read that message. Plain text works best."
	}
}

// render produces the reply for the state the conversation just landed
// in. A note from a cart side effect ("Added 2x Pizza.") is prepended.
func (e *Engine) render(s *domain.ConversationSession, note string) string {
	var b strings.Builder
	if note != "" {
		b.WriteString(note)
		b.WriteString("\n\n")
	}

	switch s.State {
	case domain.StateGreeting:
		b.WriteString("Welcome! Send anything to get started, or \"menu\" to see what we have.")
	case domain.StateBrowsingProducts:
		b.WriteString(renderMenu(s.Context.Menu))
	case domain.StateAddingToCart:
		b.WriteString(renderCartLines(s.Context.Order))
		b.WriteString("\nAdd more, send \"cart\" to review, or \"checkout\" when you're done.")
	case domain.StateReviewingOrder:
		b.WriteString(e.renderReview(s.Context))
	case domain.StateAwaitingPayment:
		b.WriteString(e.renderPaymentInstructions(s.Context))
	case domain.StatePaymentConfirmation:
		b.WriteString("Thanks! We're verifying your payment and will confirm shortly.")
	case domain.StateOrderComplete:
		b.WriteString(renderComplete(s.Context))
	default:
		b.WriteString(e.fallbackText(s))
	}
	return b.String()
}

// fallbackText nudges the customer with what works in the current state.
func (e *Engine) fallbackText(s *domain.ConversationSession) string {
	hint := "Send \"help\" if you're stuck."
	switch s.State {
	case domain.StateGreeting:
		hint = "Say \"hi\" to get started."
	case domain.StateBrowsingProducts:
		hint = "Pick a menu number, or name a product you'd like."
	case domain.StateAddingToCart:
		hint = "Add another item, send \"cart\" to review, or \"checkout\"."
	case domain.StateReviewingOrder:
		hint = "Send \"yes\" to confirm your order, or \"no\" to cancel."
	case domain.StateAwaitingPayment:
		hint = "Send your payment confirmation, or \"cancel\" to abandon the order."
	case domain.StatePaymentConfirmation:
		hint = "Hang tight, we're verifying your payment."
	case domain.StateOrderComplete:
		hint = "Send \"menu\" to start a new order."
	}
	return "Sorry, I didn't quite get that. " + hint
}

func renderMenu(menu []domain.MenuSlot) string {
	if len(menu) == 0 {
		return "Here's our menu. It looks like nothing is available right now, sorry!"
	}
	var b strings.Builder
	b.WriteString("Here's our menu:\n")
	for _, slot := range menu {
		fmt.Fprintf(&b, "%d. %s - $%.2f\n", slot.Position, slot.Name, slot.Price)
	}
	b.WriteString("Send a number to add an item, or \"cart\" to review your order.")
	return b.String()
}

func renderCartLines(order *domain.CurrentOrder) string {
	if order.IsEmpty() {
		return msgCartEmpty
	}
	var b strings.Builder
	b.WriteString("In your cart:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %dx %s ($%.2f)\n", item.Quantity, item.Name, item.LineTotal())
	}
	return b.String()
}

func (e *Engine) renderReview(ctx domain.Context) string {
	summary := e.cart.GetSummary(ctx)
	var b strings.Builder
	b.WriteString("Your order:\n")
	for _, item := range summary.Items {
		fmt.Fprintf(&b, "- %dx %s ($%.2f)\n", item.Quantity, item.Name, item.LineTotal())
	}
	fmt.Fprintf(&b, "Subtotal: $%.2f\nTax: $%.2f\nTotal: $%.2f\n\n", summary.Subtotal, summary.Tax, summary.Total)
	b.WriteString("Send \"yes\" to confirm, \"no\" to cancel, or keep adding items.")
	return b.String()
}

func (e *Engine) renderPaymentInstructions(ctx domain.Context) string {
	var b strings.Builder
	b.WriteString("Your order is confirmed!\n")
	if ctx.OrderID != "" {
		fmt.Fprintf(&b, "Order number: %s\n", ctx.OrderID)
	}
	if ctx.PaymentRef != "" {
		fmt.Fprintf(&b, "Payment reference: %s\n", ctx.PaymentRef)
	}
	if !ctx.Order.IsEmpty() {
		fmt.Fprintf(&b, "Amount due: $%.2f\n", e.cart.GetSummary(ctx).Total)
	}
	b.WriteString("Reply once you've paid and we'll verify it.")
	return b.String()
}

func renderComplete(ctx domain.Context) string {
	if ctx.OrderID != "" {
		return fmt.Sprintf("Payment received, order %s is on its way. Thank you! Send \"menu\" whenever you'd like to order again.", ctx.OrderID)
	}
	return "Payment received, your order is on its way. Thank you!"
}

// validationText turns hard validation failures into a customer-facing
// list of what blocked the order.
func validationText(result cart.ValidationResult) string {
	var b strings.Builder
	b.WriteString("I couldn't place your order:\n")
	for _, issue := range result.Errors {
		if issue.Name != "" {
			fmt.Fprintf(&b, "- %s: %s\n", issue.Name, issue.Reason)
		} else {
			fmt.Fprintf(&b, "- %s\n", issue.Reason)
		}
	}
	b.WriteString("Adjust your cart and try again.")
	return b.String()
}
