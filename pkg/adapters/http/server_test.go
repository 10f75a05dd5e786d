package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/balcao"
	catalogadapter "github.com/aretw0/balcao/pkg/adapters/catalog"
	httpadapter "github.com/aretw0/balcao/pkg/adapters/http"
	redisadapter "github.com/aretw0/balcao/pkg/adapters/redis"
	"github.com/aretw0/balcao/pkg/adapters/sqlite"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := redisadapter.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))

	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cat := catalogadapter.NewMemory(
		&domain.Product{ID: "p1", Name: "Pizza", Price: 12.50, Stock: 20, Available: true},
		&domain.Product{ID: "p2", Name: "Burger", Price: 9.90, Stock: 15, Available: true},
	)
	engine, err := balcao.New(session.NewManager(cache, repo), cat, cat)
	require.NoError(t, err)

	srv := httptest.NewServer(httpadapter.NewHandler(engine))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPostMessage(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/messages", map[string]string{
		"phone": "5511999000200",
		"text":  "hi",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "browsing_products", body["state"])
	assert.Contains(t, body["reply"], "1. Pizza")
}

func TestPostMessage_RequiresPhone(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/messages", map[string]string{"text": "hi"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	phone := "5511999000201"

	postJSON(t, srv.URL+"/messages", map[string]string{"phone": phone, "text": "hi"}).Body.Close()

	resp, err := http.Get(srv.URL + "/sessions/" + phone)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "browsing_products", body["state"])
	assert.Equal(t, phone, body["phone"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+phone, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	gone, err := http.Get(srv.URL + "/sessions/" + phone)
	require.NoError(t, err)
	gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestGetSession_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/000000000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchSessionContext(t *testing.T) {
	srv := newTestServer(t)
	phone := "5511999000202"

	postJSON(t, srv.URL+"/messages", map[string]string{"phone": phone, "text": "hi"}).Body.Close()

	data, err := json.Marshal(map[string]string{"customer_name": "Ana"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/sessions/"+phone+"/context", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	ctx, ok := body["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ana", ctx["customer_name"])
}

func TestPostSignal_RejectedWhenNotApplicable(t *testing.T) {
	srv := newTestServer(t)
	phone := "5511999000203"

	postJSON(t, srv.URL+"/messages", map[string]string{"phone": phone, "text": "hi"}).Body.Close()

	// Verifying payment for a customer who is still browsing is a
	// conflict, not a crash.
	resp := postJSON(t, srv.URL+"/signals", map[string]string{
		"phone":   phone,
		"trigger": "payment_verified",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/messages", map[string]string{"phone": "111", "text": "hi"}).Body.Close()
	postJSON(t, srv.URL+"/messages", map[string]string{"phone": "222", "text": "hi"}).Body.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(2), body["total_sessions"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
