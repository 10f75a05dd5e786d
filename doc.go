/*
Package balcao implements a text-driven ordering assistant: inbound
chat messages are parsed into intents, run through a guarded state
machine and answered with contextual replies, while the conversation
session lives in a hybrid Redis/SQLite store.

The top-level Engine is the integration point:

	sessions := session.NewManager(cacheStore, repository)
	engine, err := balcao.New(sessions, catalog, catalog)
	reply, err := engine.ProcessMessage(ctx, "5511999000001", "2x pizza please")

Subpackages hold the moving parts: pkg/parser (text to intent),
pkg/statemachine (conversation flow), pkg/cart (pricing and stock
validation), pkg/session (the hybrid store) and pkg/adapters (Redis,
SQLite, catalog backends and the HTTP surface).
*/
package balcao
