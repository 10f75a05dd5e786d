package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputSize bounds inbound message length. Chat transports rarely
// deliver more than a few hundred bytes of text; anything larger is
// rejected rather than truncated to keep parsing deterministic.
const MaxInputSize = 1024

var (
	ErrEmptyInput    = errors.New("input is empty")
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrMarkupInput   = errors.New("input looks like markup injection")
)

// markupMarkers are substrings that make a chat message look like an
// injection attempt rather than an order.
var markupMarkers = []string{"<script", "</", "<?", "${", "{{", "javascript:"}

// ValidateInput guards against empty, over-length or markup-looking text
// before parsing is attempted.
func ValidateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyInput
	}
	if len(input) > MaxInputSize {
		return fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), MaxInputSize)
	}
	if !utf8.ValidString(input) {
		return ErrInvalidUTF8
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range markupMarkers {
		if strings.Contains(lower, marker) {
			return ErrMarkupInput
		}
	}
	return nil
}

// allowedPunct is the conservative punctuation allow-list kept during
// sanitization. Everything else outside letters/digits/space is dropped.
func allowedPunct(r rune) bool {
	switch r {
	case '.', ',', '?', '!', '-', '+', '$', ':', '#', '@', '/':
		return true
	}
	return false
}

// Sanitize normalizes raw text: trim, lowercase, strip characters
// outside the punctuation allow-list and collapse runs of whitespace.
func Sanitize(input string) string {
	input = strings.TrimSpace(strings.ToLower(input))

	var b strings.Builder
	b.Grow(len(input))
	lastSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || allowedPunct(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
