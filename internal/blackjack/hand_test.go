package blackjack

import (
	"testing"

	"github.com/lox/blackjack-server/internal/deck"
)

func makeHand(ranks ...deck.Rank) Hand {
	var h Hand
	for _, r := range ranks {
		h.Append(deck.NewCard(deck.Spades, r))
	}
	return h
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank
		total int
		soft  bool
		bust  bool
	}{
		{"empty", nil, 0, false, false},
		{"ace king", []deck.Rank{deck.Ace, deck.King}, 21, true, false},
		{"two aces and nine", []deck.Rank{deck.Ace, deck.Ace, deck.Nine}, 21, true, false},
		{"hard twenty six", []deck.Rank{deck.Ten, deck.Six, deck.King}, 26, false, true},
		{"soft seventeen", []deck.Rank{deck.Ace, deck.Six}, 17, true, false},
		{"hard seventeen", []deck.Rank{deck.Ace, deck.Six, deck.Ten}, 17, false, false},
		{"four aces", []deck.Rank{deck.Ace, deck.Ace, deck.Ace, deck.Ace}, 14, true, false},
		{"all aces demoted", []deck.Rank{deck.Ace, deck.Ace, deck.Ten, deck.Nine}, 21, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := makeHand(tt.ranks...)
			total, soft := h.Value()
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if soft != tt.soft {
				t.Errorf("soft = %v, want %v", soft, tt.soft)
			}
			if h.IsBust() != tt.bust {
				t.Errorf("IsBust() = %v, want %v", h.IsBust(), tt.bust)
			}
		})
	}
}

func TestHandIsBlackjack(t *testing.T) {
	if h := makeHand(deck.Ace, deck.King); !h.IsBlackjack() {
		t.Error("A + K should be a natural")
	}
	if h := makeHand(deck.Ace, deck.King, deck.Ten); h.IsBlackjack() {
		t.Error("three-card 21 is not a natural")
	}
	if h := makeHand(deck.Seven, deck.Seven, deck.Seven); h.IsBlackjack() {
		t.Error("three-card 21 is not a natural")
	}
	if h := makeHand(deck.Ten, deck.Nine); h.IsBlackjack() {
		t.Error("19 is not a natural")
	}
}

func TestHandValueNeverCached(t *testing.T) {
	h := makeHand(deck.Ace, deck.Six)
	if total, soft := h.Value(); total != 17 || !soft {
		t.Fatalf("Value() = (%d, %v), want (17, true)", total, soft)
	}

	// Drawing a ten must demote the ace on the next computation.
	h.Append(deck.NewCard(deck.Hearts, deck.Ten))
	if total, soft := h.Value(); total != 17 || soft {
		t.Fatalf("Value() after draw = (%d, %v), want (17, false)", total, soft)
	}
}

func TestHandCardsReturnsCopy(t *testing.T) {
	h := makeHand(deck.Two, deck.Three)
	cards := h.Cards()
	cards[0] = deck.NewCard(deck.Clubs, deck.King)

	if got := h.Cards()[0]; got != deck.NewCard(deck.Spades, deck.Two) {
		t.Errorf("mutating the snapshot changed the hand: %s", got)
	}
}
