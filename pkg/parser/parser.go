/*
Package parser turns raw chat text into an intent, typed entities, a
confidence score and a mapped state-machine trigger.

Recognition is deliberately shallow: ordered pattern families and
keyword lists, no NLU. Parsing never fails for malformed input; it
degrades to an unknown intent with zero confidence.
*/
package parser

import (
	"strconv"
	"strings"

	"github.com/aretw0/balcao/pkg/domain"
)

// intentRule matches an intent when any of its keywords appears as a
// whole word, or any of its phrases as a substring.
type intentRule struct {
	intent   domain.Intent
	keywords []string
	phrases  []string
}

// intentRules are evaluated in order; the first match wins.
var intentRules = []intentRule{
	{intent: domain.IntentCancel, keywords: []string{"cancel", "nevermind"}, phrases: []string{"forget it", "start over"}},
	{intent: domain.IntentViewCart, keywords: []string{"cart", "basket"}, phrases: []string{"my order", "view order", "show order"}},
	{intent: domain.IntentRemoveItem, keywords: []string{"remove", "delete"}, phrases: []string{"take out", "take off"}},
	{intent: domain.IntentCheckout, keywords: []string{"checkout", "finish", "done"}, phrases: []string{"check out", "place order", "thats all", "that is all"}},
	{intent: domain.IntentPaymentProof, keywords: []string{"paid", "payment", "transfer", "receipt"}, phrases: []string{"i paid", "sent the money"}},
	{intent: domain.IntentGreeting, keywords: []string{"hi", "hello", "hey", "oi", "ola"}, phrases: []string{"good morning", "good afternoon", "good evening", "bom dia", "boa tarde", "boa noite"}},
	{intent: domain.IntentBrowse, keywords: []string{"menu", "products", "browse", "catalog"}, phrases: []string{"what do you have", "show me"}},
	{intent: domain.IntentHelp, keywords: []string{"help"}, phrases: []string{"what can you do"}},
	{intent: domain.IntentGoBack, keywords: []string{"back"}, phrases: []string{"go back"}},
	{intent: domain.IntentConfirm, keywords: []string{"yes", "yeah", "yep", "confirm", "ok", "sure", "sim"}, phrases: []string{"of course"}},
	{intent: domain.IntentDeny, keywords: []string{"no", "nope", "nah", "nao"}, phrases: []string{}},
	{intent: domain.IntentAddToCart, keywords: []string{"want", "add", "buy", "order"}, phrases: []string{"i will have", "give me"}},
}

// Parser converts sanitized text into ParsedInput. It is stateless and
// safe for concurrent use.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse analyzes one inbound message against the caller's current state
// and context (the context carries the positional menu). It never
// panics: internal failures degrade to an unknown-intent result.
func (p *Parser) Parse(text string, state domain.ConversationState, ctx domain.Context) (result domain.ParsedInput) {
	result = domain.ParsedInput{Text: text, Intent: domain.IntentUnknown}
	defer func() {
		if r := recover(); r != nil {
			result = domain.ParsedInput{Text: text, Intent: domain.IntentUnknown}
		}
	}()

	clean := Sanitize(text)
	if clean == "" {
		return result
	}

	result.Intent = detectIntent(clean, state, ctx)
	result.Entities = extractEntities(clean, ctx)
	result.Trigger = mapTrigger(result.Intent, state)
	result.Confidence = score(result, clean)
	return result
}

// detectIntent applies the ordered rule list. Numeric shortcuts take
// precedence: "0" goes back, "1".."5" select a menu slot.
func detectIntent(clean string, state domain.ConversationState, ctx domain.Context) domain.Intent {
	if reDigitOnly.MatchString(clean) {
		n, _ := strconv.Atoi(clean)
		switch {
		case n == 0:
			return domain.IntentGoBack
		case n >= 1 && n <= 5:
			if _, ok := ctx.MenuSlotAt(n); ok {
				return domain.IntentAddToCart
			}
			return domain.IntentUnknown
		}
	}

	words := fieldSet(clean)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if _, ok := words[kw]; ok {
				return rule.intent
			}
		}
		for _, phrase := range rule.phrases {
			if phrase != "" && strings.Contains(clean, phrase) {
				return rule.intent
			}
		}
	}

	// A bare menu-item mention ("2x pizza") reads as an add request.
	for _, slot := range ctx.Menu {
		if slot.Name != "" && strings.Contains(clean, strings.ToLower(slot.Name)) {
			return domain.IntentAddToCart
		}
	}

	// Anything non-empty while still greeting counts as engagement.
	if state == domain.StateGreeting {
		return domain.IntentStart
	}
	return domain.IntentUnknown
}

// mapTrigger resolves the intent to a state-machine trigger. Confirm and
// deny are contextual: they mean different things depending on where the
// conversation currently is.
func mapTrigger(intent domain.Intent, state domain.ConversationState) domain.Trigger {
	switch intent {
	case domain.IntentGreeting, domain.IntentStart:
		return domain.TriggerStartConversation
	case domain.IntentBrowse:
		return domain.TriggerBrowseProducts
	case domain.IntentAddToCart:
		return domain.TriggerAddToCart
	case domain.IntentViewCart:
		return domain.TriggerViewCart
	case domain.IntentRemoveItem:
		return domain.TriggerRemoveFromCart
	case domain.IntentCheckout:
		return domain.TriggerCheckout
	case domain.IntentCancel:
		return domain.TriggerCancelOrder
	case domain.IntentGoBack:
		if state == domain.StateOrderComplete {
			return domain.TriggerStartOver
		}
		return domain.TriggerGoBack
	case domain.IntentPaymentProof:
		return domain.TriggerSubmitPayment
	case domain.IntentConfirm:
		switch state {
		case domain.StateReviewingOrder:
			return domain.TriggerConfirmOrder
		case domain.StateAwaitingPayment:
			return domain.TriggerSubmitPayment
		case domain.StateOrderComplete:
			return domain.TriggerStartOver
		}
		return ""
	case domain.IntentDeny:
		switch state {
		case domain.StateReviewingOrder, domain.StateAwaitingPayment:
			return domain.TriggerCancelOrder
		}
		return ""
	}
	return ""
}

// score blends intent recognition, entity confidences and input length
// into a single confidence value capped at 1.0.
func score(result domain.ParsedInput, clean string) float64 {
	var s float64
	if result.Intent != domain.IntentUnknown {
		s += 0.5
	}
	if len(result.Entities) > 0 {
		var sum float64
		for _, e := range result.Entities {
			sum += e.Confidence
		}
		s += 0.3 * (sum / float64(len(result.Entities)))
	}
	// Short, direct messages parse more reliably than rambling ones.
	switch n := len(strings.Fields(clean)); {
	case n <= 3:
		s += 0.2
	case n <= 8:
		s += 0.1
	}
	if s > 1.0 {
		s = 1.0
	}
	return s
}

func fieldSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,?!:")] = struct{}{}
	}
	return set
}
