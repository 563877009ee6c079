package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted indicates a draw was attempted with no cards remaining.
var ErrExhausted = errors.New("deck: no cards remaining")

// CardsPerDeck is the size of one standard deck.
const CardsPerDeck = 52

// Deck represents one shoe of numDecks shuffled standard decks.
type Deck struct {
	cards []Card
}

// New builds numDecks standard 52-card decks and shuffles them with the
// provided RNG. Callers own the RNG; pass a deterministic one for tests.
func New(rng *rand.Rand, numDecks int) *Deck {
	if numDecks < 1 {
		numDecks = 1
	}

	d := &Deck{
		cards: make([]Card, 0, numDecks*CardsPerDeck),
	}
	for i := 0; i < numDecks; i++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Ace; rank <= King; rank++ {
				d.cards = append(d.cards, NewCard(suit, rank))
			}
		}
	}

	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})

	return d
}

// Draw removes and returns the next card in shuffled order.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrExhausted
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
