package balcao_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/balcao"
	catalogadapter "github.com/aretw0/balcao/pkg/adapters/catalog"
	redisadapter "github.com/aretw0/balcao/pkg/adapters/redis"
	"github.com/aretw0/balcao/pkg/adapters/sqlite"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalogadapter.Memory {
	return catalogadapter.NewMemory(
		&domain.Product{ID: "p1", Name: "Pizza", Price: 12.50, Stock: 20, Available: true},
		&domain.Product{ID: "p2", Name: "Burger", Price: 9.90, Stock: 15, Available: true},
		&domain.Product{ID: "p3", Name: "Salad", Price: 7.00, Stock: 10, Available: true},
	)
}

func newEngine(t *testing.T) (*balcao.Engine, *catalogadapter.Memory) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := redisadapter.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))

	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cat := testCatalog()
	engine, err := balcao.New(session.NewManager(cache, repo), cat, cat)
	require.NoError(t, err)
	return engine, cat
}

func send(t *testing.T, e *balcao.Engine, phone, text string) *balcao.Reply {
	t.Helper()
	reply, err := e.ProcessMessage(context.Background(), phone, text)
	require.NoError(t, err)
	return reply
}

func TestProcessMessage_FullOrderFlow(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000100"

	reply := send(t, engine, phone, "hi")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State)
	assert.Contains(t, reply.Text, "1. Pizza")
	assert.Contains(t, reply.Text, "$12.50")

	reply = send(t, engine, phone, "1")
	assert.Equal(t, domain.StateAddingToCart, reply.State)
	assert.Contains(t, reply.Text, "Added 1x Pizza")

	reply = send(t, engine, phone, "add 2x burger")
	assert.Equal(t, domain.StateAddingToCart, reply.State)
	assert.Contains(t, reply.Text, "Added 2x Burger")

	reply = send(t, engine, phone, "cart")
	assert.Equal(t, domain.StateReviewingOrder, reply.State)
	assert.Contains(t, reply.Text, "1x Pizza")
	assert.Contains(t, reply.Text, "2x Burger")
	// 12.50 + 2*9.90 = 32.30 subtotal, 8% tax.
	assert.Contains(t, reply.Text, "Subtotal: $32.30")
	assert.Contains(t, reply.Text, "Tax: $2.58")
	assert.Contains(t, reply.Text, "Total: $34.88")

	reply = send(t, engine, phone, "yes")
	assert.Equal(t, domain.StateAwaitingPayment, reply.State)
	assert.Contains(t, reply.Text, "Order ORD-000001 confirmed!")
	assert.Contains(t, reply.Text, "Payment reference: PAY-")

	reply = send(t, engine, phone, "i paid")
	assert.Equal(t, domain.StatePaymentConfirmation, reply.State)
	assert.Contains(t, reply.Text, "verifying")

	verified, err := engine.Signal(context.Background(), phone, domain.TriggerPaymentVerified)
	require.NoError(t, err)
	assert.Equal(t, domain.StateOrderComplete, verified.State)
	assert.Contains(t, verified.Text, "ORD-000001")
}

func TestProcessMessage_UnknownInputKeepsState(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000101"

	send(t, engine, phone, "hello")
	reply := send(t, engine, phone, "flux capacitor")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State)
	assert.Contains(t, reply.Text, "didn't quite get that")

	// The nudge is state-aware.
	assert.Contains(t, reply.Text, "menu number")
}

func TestProcessMessage_CheckoutWithEmptyCartBlocked(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000102"

	send(t, engine, phone, "hi")
	reply := send(t, engine, phone, "checkout")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State, "guard must hold the state")
	assert.Contains(t, reply.Text, "didn't quite get that")
}

func TestProcessMessage_ViewEmptyCartExplains(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000103"

	send(t, engine, phone, "hi")
	reply := send(t, engine, phone, "cart")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State)
	assert.Contains(t, reply.Text, "cart is empty")
}

func TestProcessMessage_InsufficientStockBlocksAdd(t *testing.T) {
	engine, cat := newEngine(t)
	phone := "5511999000104"

	send(t, engine, phone, "hi")
	cat.SetStock("p1", 1)
	reply := send(t, engine, phone, "5x pizza")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State, "failed add must not transition")
	assert.Contains(t, reply.Text, "can't do 5x Pizza")
}

func TestProcessMessage_StockDriftBlocksConfirmation(t *testing.T) {
	engine, cat := newEngine(t)
	phone := "5511999000105"

	send(t, engine, phone, "hi")
	send(t, engine, phone, "3x pizza")
	send(t, engine, phone, "cart")

	// Stock drains between review and confirmation.
	cat.SetStock("p1", 1)
	reply := send(t, engine, phone, "yes")
	assert.Equal(t, domain.StateReviewingOrder, reply.State)
	assert.Contains(t, reply.Text, "couldn't place your order")
	assert.Contains(t, reply.Text, "insufficient stock: 1 available, 3 requested")
}

func TestProcessMessage_CancelPurgesCart(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000106"

	send(t, engine, phone, "hi")
	send(t, engine, phone, "1")
	send(t, engine, phone, "cart")
	reply := send(t, engine, phone, "no")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State)

	// A fresh cart view confirms nothing survived the cancellation.
	reply = send(t, engine, phone, "cart")
	assert.Contains(t, reply.Text, "cart is empty")
}

func TestProcessMessage_RemoveItem(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000107"

	send(t, engine, phone, "hi")
	send(t, engine, phone, "1")
	send(t, engine, phone, "add burger")
	reply := send(t, engine, phone, "remove pizza")
	assert.Equal(t, domain.StateAddingToCart, reply.State)
	assert.Contains(t, reply.Text, "Removed Pizza")
	assert.NotContains(t, reply.Text, "1x Pizza")
	assert.Contains(t, reply.Text, "1x Burger")
}

func TestProcessMessage_RejectsHostileInput(t *testing.T) {
	engine, _ := newEngine(t)

	reply := send(t, engine, "5511999000108", "<script>alert(1)</script>")
	assert.Contains(t, reply.Text, "Plain text")

	reply = send(t, engine, "5511999000108", "   ")
	assert.Contains(t, reply.Text, "didn't receive any text")

	reply = send(t, engine, "5511999000108", strings.Repeat("a", 2048))
	assert.Contains(t, reply.Text, "too long")
}

func TestProcessMessage_SessionSurvivesBetweenMessages(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000109"

	send(t, engine, phone, "hi")
	send(t, engine, phone, "1")

	s, err := engine.Sessions().Peek(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAddingToCart, s.State)
	require.NotNil(t, s.Context.Order)
	assert.Len(t, s.Context.Order.Items, 1)
	assert.Equal(t, "p1", s.Context.Order.Items[0].ProductID)
}

func TestProcessMessage_StartOverAfterCompletion(t *testing.T) {
	engine, _ := newEngine(t)
	phone := "5511999000110"

	for _, msg := range []string{"hi", "1", "cart", "yes", "paid"} {
		send(t, engine, phone, msg)
	}
	_, err := engine.Signal(context.Background(), phone, domain.TriggerPaymentVerified)
	require.NoError(t, err)

	reply := send(t, engine, phone, "menu")
	assert.Equal(t, domain.StateBrowsingProducts, reply.State)

	// The finished order's context is gone.
	s, err := engine.Sessions().Peek(context.Background(), phone)
	require.NoError(t, err)
	assert.True(t, s.Context.Order.IsEmpty())
	assert.Empty(t, s.Context.PaymentRef)
	assert.Empty(t, s.Context.OrderID)
}

func TestRunner_ScriptedConversation(t *testing.T) {
	engine, _ := newEngine(t)

	input := strings.NewReader("hi\n1\ncart\nyes\npaid\nexit\n")
	var output bytes.Buffer
	runner := &balcao.Runner{Input: input, Output: &output, Phone: "5511999000111"}

	require.NoError(t, runner.Run(context.Background(), engine))
	assert.Contains(t, output.String(), "1. Pizza")
	assert.Contains(t, output.String(), "Order ORD-000001 confirmed!")
	assert.Contains(t, output.String(), "verifying")
}
