/*
Package domain contains the core domain models for the Balcão engine.

It defines the conversation states, the session and its typed context,
the cart structures and the parsed-input shapes. This package is kept
pure and free of external dependencies so that the state machine, the
parser and the cart aggregator can operate on it without any I/O.
*/
package domain
