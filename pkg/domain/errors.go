package domain

import "errors"

// ErrSessionNotFound is returned by targeted lookups when a phone number
// has no live session. The primary read path never surfaces it: callers
// get a fresh session instead.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoTransition is returned when no transition matches the
// (state, trigger) pair. Recoverable: the orchestrator falls back to a
// generic response without mutating the session.
var ErrNoTransition = errors.New("no transition")

// ErrProductUnavailable is returned when a cart mutation references a
// product that is out of stock or discontinued.
var ErrProductUnavailable = errors.New("product unavailable")

// ErrProductNotFound is returned when a product id is unknown to the catalog.
var ErrProductNotFound = errors.New("product not found")

// ErrEmptyCart is returned when an operation requires a non-empty cart.
var ErrEmptyCart = errors.New("cart is empty")
