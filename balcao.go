package balcao

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/balcao/pkg/cart"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/observability"
	"github.com/aretw0/balcao/pkg/parser"
	"github.com/aretw0/balcao/pkg/ports"
	"github.com/aretw0/balcao/pkg/session"
	"github.com/aretw0/balcao/pkg/statemachine"
)

// Reply is what the assistant sends back for one inbound message.
type Reply struct {
	Text       string
	State      domain.ConversationState
	Intent     domain.Intent
	Confidence float64
}

// Engine is the high-level entry point: it wires the parser, the state
// machine, the cart aggregator and the session store into a single
// message-processing pipeline.
type Engine struct {
	sessions *session.Manager
	machine  *statemachine.Machine
	parser   *parser.Parser
	cart     *cart.Aggregator
	menu     ports.MenuProvider
	logger   *slog.Logger
	metrics  *observability.Metrics
	cartOpts []cart.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics registers Prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithMachine replaces the built-in conversation flow.
func WithMachine(m *statemachine.Machine) Option {
	return func(e *Engine) {
		e.machine = m
	}
}

// WithMenu injects the numbered menu shown to customers. When the
// catalog passed to New also implements ports.MenuProvider this is
// unnecessary.
func WithMenu(menu ports.MenuProvider) Option {
	return func(e *Engine) {
		e.menu = menu
	}
}

// WithCartOptions forwards options to the cart aggregator, such as
// cart.WithTaxRate.
func WithCartOptions(opts ...cart.Option) Option {
	return func(e *Engine) {
		e.cartOpts = append(e.cartOpts, opts...)
	}
}

// New initializes the Engine over a session manager, a product catalog
// and an order backend.
func New(sessions *session.Manager, catalog ports.Catalog, orders ports.OrderCreator, opts ...Option) (*Engine, error) {
	e := &Engine{
		sessions: sessions,
		parser:   parser.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.machine == nil {
		m, err := statemachine.NewDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to build conversation flow: %w", err)
		}
		e.machine = m
	}
	if e.menu == nil {
		if mp, ok := catalog.(ports.MenuProvider); ok {
			e.menu = mp
		}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.cart = cart.New(catalog, orders, e.cartOpts...)
	return e, nil
}

// Sessions exposes the underlying session manager for maintenance
// surfaces (CLI, HTTP).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Machine exposes the conversation flow for introspection.
func (e *Engine) Machine() *statemachine.Machine {
	return e.machine
}

// GetSession looks up a conversation without creating one.
func (e *Engine) GetSession(ctx context.Context, phone string) (*domain.ConversationSession, error) {
	return e.sessions.Peek(ctx, phone)
}

// ActiveSessions returns how many conversations are currently live.
func (e *Engine) ActiveSessions(ctx context.Context) int {
	return e.sessions.CountActive(ctx)
}

// SessionStats returns totals and the by-state breakdown.
func (e *Engine) SessionStats(ctx context.Context) session.Stats {
	return e.sessions.GetStats(ctx)
}

// ProcessMessage handles one inbound message for the given phone
// number: validate, load the session, parse, apply cart side effects,
// transition, persist and render a reply. The whole turn runs under the
// conversation's lock, so concurrent messages from the same number are
// processed one at a time.
//
// Unrecognized input never errors: the customer gets a contextual nudge
// and the conversation stays where it was. A returned error means the
// reply could not be persisted at all.
func (e *Engine) ProcessMessage(ctx context.Context, phone, text string) (*Reply, error) {
	if err := parser.ValidateInput(text); err != nil {
		e.metrics.Message("rejected")
		return &Reply{Text: rejectionText(err), Intent: domain.IntentUnknown}, nil
	}

	var reply *Reply
	_, err := e.sessions.Mutate(ctx, phone, func(ctx context.Context, s *domain.ConversationSession) error {
		reply = e.handle(ctx, s, text)
		return nil
	})
	if err != nil {
		e.metrics.Message("storage_error")
		e.logger.Error("failed to process message", "phone", phone, "err", err)
		return &Reply{Text: msgStorageApology, Intent: domain.IntentUnknown}, err
	}
	return reply, nil
}

// Signal applies an out-of-band trigger to a conversation, bypassing
// the parser. Operator surfaces use it for payment verification
// (PAYMENT_VERIFIED / PAYMENT_REJECTED).
func (e *Engine) Signal(ctx context.Context, phone string, trigger domain.Trigger) (*Reply, error) {
	var reply *Reply
	_, err := e.sessions.Mutate(ctx, phone, func(ctx context.Context, s *domain.ConversationSession) error {
		res, err := e.machine.ExecuteTransition(s.State, trigger, s.Context)
		if err != nil {
			return err
		}
		e.metrics.Transition(string(s.State), string(trigger))
		s.State = res.NewState
		s.Context = res.Context
		reply = &Reply{Text: e.render(s, ""), State: s.State}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (e *Engine) handle(ctx context.Context, s *domain.ConversationSession, text string) *Reply {
	// The positional menu is what numeric shortcuts resolve against;
	// make sure the session carries one before parsing.
	if len(s.Context.Menu) == 0 && e.menu != nil {
		s.Context.Menu = e.menu.Menu()
	}

	parsed := e.parser.Parse(text, s.State, s.Context)
	reply := &Reply{State: s.State, Intent: parsed.Intent, Confidence: parsed.Confidence}

	if parsed.Trigger == "" || !e.machine.HasCandidate(s.State, parsed.Trigger) {
		e.metrics.Message("fallback")
		e.logger.Debug("no transition for input",
			"phone", s.Phone, "state", s.State, "intent", parsed.Intent)
		reply.Text = e.fallbackText(s)
		return reply
	}

	// Cart side effects run before the transition so guards like
	// "cart is non-empty" observe their outcome.
	note, ok := e.applySideEffects(ctx, s, parsed)
	if !ok {
		e.metrics.Message("blocked")
		reply.Text = note
		return reply
	}

	from := s.State
	prevCtx := s.Context
	res, err := e.machine.ExecuteTransition(s.State, parsed.Trigger, s.Context)
	if err != nil {
		e.metrics.Message("fallback")
		reply.Text = e.fallbackText(s)
		return reply
	}
	s.State = res.NewState
	s.Context = res.Context

	// Order creation happens after the guards accepted the
	// confirmation; a failed creation rolls the transition back.
	if parsed.Trigger == domain.TriggerConfirmOrder {
		confirmNote, ok := e.applyConfirm(ctx, s)
		if !ok {
			s.State = from
			s.Context = prevCtx
			e.metrics.Message("blocked")
			reply.State = from
			reply.Text = confirmNote
			return reply
		}
		note = confirmNote
	}

	e.metrics.Message("handled")
	e.metrics.Transition(string(from), string(parsed.Trigger))
	e.logger.Info("transition",
		"phone", s.Phone, "from", from, "to", s.State, "trigger", parsed.Trigger)

	reply.State = s.State
	reply.Text = e.render(s, note)
	return reply
}

// applySideEffects performs the cart mutation implied by the trigger.
// It returns a note to weave into the reply and whether the transition
// should proceed; on false the note is the complete reply and the
// conversation stays in its current state.
func (e *Engine) applySideEffects(ctx context.Context, s *domain.ConversationSession, parsed domain.ParsedInput) (string, bool) {
	switch parsed.Trigger {
	case domain.TriggerAddToCart:
		return e.applyAdd(ctx, s, parsed)
	case domain.TriggerRemoveFromCart:
		return e.applyRemove(s, parsed)
	case domain.TriggerViewCart:
		if s.Context.Order.IsEmpty() {
			// The empty-cart self loop still fires; pair it with an
			// explanation instead of a silent menu reprint.
			return msgCartEmpty, true
		}
	}
	return "", true
}

func (e *Engine) applyAdd(ctx context.Context, s *domain.ConversationSession, parsed domain.ParsedInput) (string, bool) {
	name, ok := parsed.Entity(domain.EntityProductName)
	if !ok {
		return msgWhichProduct, false
	}
	slot, ok := resolveMenuSlot(s.Context.Menu, name.Value)
	if !ok {
		return fmt.Sprintf("Sorry, I couldn't find %q on the menu. Send \"menu\" to see what we have.", name.Value), false
	}

	qty := 1
	if q, ok := parsed.Entity(domain.EntityQuantity); ok {
		if n, err := strconv.Atoi(q.Value); err == nil && n > 0 {
			qty = n
		}
	}

	if err := e.cart.AddItem(ctx, &s.Context, slot.ProductID, qty); err != nil {
		e.logger.Debug("add to cart refused", "phone", s.Phone, "product", slot.ProductID, "err", err)
		switch {
		case errors.Is(err, domain.ErrProductUnavailable):
			return fmt.Sprintf("Sorry, we can't do %dx %s right now.", qty, slot.Name), false
		case errors.Is(err, domain.ErrProductNotFound):
			return fmt.Sprintf("Sorry, %s is no longer available.", slot.Name), false
		default:
			return msgCatalogApology, false
		}
	}
	return fmt.Sprintf("Added %dx %s.", qty, slot.Name), true
}

func (e *Engine) applyRemove(s *domain.ConversationSession, parsed domain.ParsedInput) (string, bool) {
	if s.Context.Order.IsEmpty() {
		return msgCartEmpty, false
	}
	name, ok := parsed.Entity(domain.EntityProductName)
	if !ok {
		return "Which item should I remove?", false
	}
	item, ok := resolveOrderItem(s.Context.Order, name.Value)
	if !ok {
		return fmt.Sprintf("I don't see %q in your cart.", name.Value), false
	}

	qty := 0 // whole line unless a quantity was given
	if q, ok := parsed.Entity(domain.EntityQuantity); ok {
		if n, err := strconv.Atoi(q.Value); err == nil {
			qty = n
		}
	}
	if err := e.cart.RemoveItem(&s.Context, item.ProductID, qty); err != nil {
		return msgCartEmpty, false
	}
	return fmt.Sprintf("Removed %s.", item.Name), true
}

func (e *Engine) applyConfirm(ctx context.Context, s *domain.ConversationSession) (string, bool) {
	orderID, result, err := e.cart.CreateOrderFromCart(ctx, &s.Context, s.CustomerID, "")
	if err != nil {
		if !result.IsValid {
			e.logger.Info("order blocked by validation",
				"phone", s.Phone, "issues", len(result.Errors))
			return validationText(result), false
		}
		e.logger.Error("order creation failed", "phone", s.Phone, "err", err)
		return msgOrderApology, false
	}
	return fmt.Sprintf("Order %s confirmed!", orderID), true
}

// resolveMenuSlot matches a parsed product reference against the menu,
// case-insensitively, on exact name first and substring second.
func resolveMenuSlot(menu []domain.MenuSlot, name string) (domain.MenuSlot, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.MenuSlot{}, false
	}
	for _, slot := range menu {
		if strings.ToLower(slot.Name) == needle {
			return slot, true
		}
	}
	for _, slot := range menu {
		lower := strings.ToLower(slot.Name)
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return slot, true
		}
	}
	return domain.MenuSlot{}, false
}

func resolveOrderItem(order *domain.CurrentOrder, name string) (domain.OrderItem, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, item := range order.Items {
		lower := strings.ToLower(item.Name)
		if lower == needle || strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return item, true
		}
	}
	return domain.OrderItem{}, false
}
