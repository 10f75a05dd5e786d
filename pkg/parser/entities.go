package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/balcao/pkg/domain"
)

var (
	reQuantity   = regexp.MustCompile(`\b(\d+)\s*(?:x\b|pcs\b|units?\b)|\bx\s*(\d+)\b`)
	rePhone      = regexp.MustCompile(`\+?\d{8,15}`)
	rePaymentRef = regexp.MustCompile(`\bpay-[a-z0-9-]+\b`)
	reAmount     = regexp.MustCompile(`(?:\$|r\$\s?|usd\s?)(\d+(?:\.\d{1,2})?)|\b(\d+\.\d{2})\b`)
	reDigitOnly  = regexp.MustCompile(`^\d$`)
)

// stopWords are filtered out before the free-text product-name fallback.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "want": {}, "would": {},
	"like": {}, "to": {}, "add": {}, "buy": {}, "order": {}, "me": {},
	"please": {}, "some": {}, "of": {}, "and": {}, "get": {}, "one": {},
	"remove": {}, "delete": {}, "my": {}, "from": {}, "cart": {},
}

// extractEntities pulls typed values out of the sanitized text,
// independently of the detected intent.
func extractEntities(text string, ctx domain.Context) []domain.Entity {
	var entities []domain.Entity

	if qty, ok := extractQuantity(text); ok {
		entities = append(entities, domain.Entity{
			Type:       domain.EntityQuantity,
			Value:      strconv.Itoa(qty),
			Confidence: 0.9,
		})
	}

	if name, conf, ok := extractProductName(text, ctx); ok {
		entities = append(entities, domain.Entity{
			Type:       domain.EntityProductName,
			Value:      name,
			Confidence: conf,
		})
	}

	if ref := rePaymentRef.FindString(text); ref != "" {
		entities = append(entities, domain.Entity{
			Type:       domain.EntityPaymentReference,
			Value:      strings.ToUpper(ref),
			Confidence: 0.95,
		})
	}

	if m := rePhone.FindString(text); m != "" && !rePaymentRef.MatchString(text) {
		// A run of 8+ digits with no payment prefix reads as a phone number.
		entities = append(entities, domain.Entity{
			Type:       domain.EntityPhoneNumber,
			Value:      m,
			Confidence: 0.7,
		})
	}

	if m := reAmount.FindStringSubmatch(text); m != nil {
		value := m[1]
		if value == "" {
			value = m[2]
		}
		entities = append(entities, domain.Entity{
			Type:       domain.EntityAmount,
			Value:      value,
			Confidence: 0.8,
		})
	}

	return entities
}

// extractQuantity finds quantities written as "2x", "x2", "3 pcs" or
// "2 units". A bare menu digit is not a quantity.
func extractQuantity(text string) (int, bool) {
	m := reQuantity.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty <= 0 {
		return 0, false
	}
	return qty, true
}

// extractProductName resolves a product reference in three passes:
// numbered-menu lookup, keyword match against menu slot names and a
// stop-word-filtered free-text fallback.
func extractProductName(text string, ctx domain.Context) (string, float64, bool) {
	// 1. Bare menu digit ("1" .. "5").
	if reDigitOnly.MatchString(text) {
		pos, _ := strconv.Atoi(text)
		if slot, ok := ctx.MenuSlotAt(pos); ok {
			return slot.Name, 0.95, true
		}
	}

	// 2. Menu slot name mentioned anywhere in the text.
	for _, slot := range ctx.Menu {
		if slot.Name != "" && strings.Contains(text, strings.ToLower(slot.Name)) {
			return slot.Name, 0.85, true
		}
	}

	// 3. Fallback: longest token that survives the stop-word filter.
	var best string
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,?!:")
		if _, stop := stopWords[word]; stop {
			continue
		}
		if len(word) < 3 || reDigitOnly.MatchString(word) {
			continue
		}
		if len(word) > len(best) {
			best = word
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, 0.4, true
}
