package blackjack

import (
	"strings"

	"github.com/lox/blackjack-server/internal/deck"
)

// Hand is an ordered, append-only sequence of cards held by one
// participant during a round.
type Hand struct {
	cards []deck.Card
}

// Append adds a card to the end of the hand. Busting is a value-level
// concept, so no structural limit is enforced here.
func (h *Hand) Append(card deck.Card) {
	h.cards = append(h.cards, card)
}

// Cards returns a copy of the hand's card sequence.
func (h *Hand) Cards() []deck.Card {
	out := make([]deck.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards in the hand.
func (h *Hand) Len() int {
	return len(h.cards)
}

// Value computes the best blackjack total for the hand. Every ace is
// counted as 11 first, then demoted to 1 one at a time while the total
// exceeds 21. The soft flag reports whether an ace is still counted as
// 11, which is what a soft-17 dealer variant would key off.
//
// The value is recomputed on every call; caching it would go stale the
// moment another card lands.
func (h *Hand) Value() (total int, soft bool) {
	aces := 0
	for _, c := range h.cards {
		if c.IsAce() {
			aces++
			total += 11
			continue
		}
		total += c.Points()
	}

	elevens := aces
	for total > 21 && elevens > 0 {
		total -= 10
		elevens--
	}
	return total, elevens > 0
}

// IsBust reports whether the hand's best total exceeds 21.
func (h *Hand) IsBust() bool {
	total, _ := h.Value()
	return total > 21
}

// IsBlackjack reports whether the hand is a natural: exactly two cards
// totaling 21.
func (h *Hand) IsBlackjack() bool {
	if len(h.cards) != 2 {
		return false
	}
	total, _ := h.Value()
	return total == 21
}

// String renders the hand as space-separated cards, e.g. "A♠ K♥".
func (h *Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, c := range h.cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
