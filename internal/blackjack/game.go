// Package blackjack implements the single-round blackjack engine: one
// shoe, one dealer hand, a fixed set of player hands, and the dealer's
// automated play-out. The engine is not safe for concurrent use; the
// session layer serializes access per game.
package blackjack

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/blackjack-server/internal/deck"
)

var (
	// ErrInvalidState indicates an operation attempted in a game state
	// that forbids it, such as dealing an already-dealt game.
	ErrInvalidState = errors.New("blackjack: invalid game state")

	// ErrIndexOutOfRange indicates a player index outside [0, numPlayers).
	ErrIndexOutOfRange = errors.New("blackjack: player index out of range")
)

// State is the lifecycle phase of a game. Transitions only move
// forward; a game is single-use for one round.
type State int

const (
	StateEmpty State = iota
	StateDealt
	StateResolving
	StateResolved
)

// String returns the string representation of a state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDealt:
		return "dealt"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is the per-player result of a round.
type Outcome string

const (
	// OutcomeNone means the round cannot be resolved yet.
	OutcomeNone Outcome = "NONE"
	// OutcomeDealer means the dealer beat this player.
	OutcomeDealer Outcome = "DEALER"
	// OutcomePlayer means this player beat the dealer.
	OutcomePlayer Outcome = "PLAYER"
)

// TiePolicy decides equal, non-blackjack totals. The default house
// rule awards ties to the dealer; push-as-NONE is the other sensible
// rule, so it is a construction-time choice rather than a constant.
type TiePolicy int

const (
	// TieDealerWins awards a push to the dealer.
	TieDealerWins TiePolicy = iota
	// TiePush reports a push as OutcomeNone.
	TiePush
)

const dealerStandTotal = 17

// Game owns one deck and numPlayers+1 hands and walks a round through
// deal, player draws, dealer play-out, and winner computation.
type Game struct {
	numPlayers int
	state      State
	shoe       *deck.Deck
	dealer     Hand
	players    []Hand
	tiePolicy  TiePolicy
}

// Option configures a Game.
type Option func(*Game)

// WithTiePolicy overrides the default house-favors-ties rule.
func WithTiePolicy(policy TiePolicy) Option {
	return func(g *Game) {
		g.tiePolicy = policy
	}
}

// NewGame creates an undealt game for numPlayers players drawing from
// numDecks interleaved decks shuffled by rng.
func NewGame(rng *rand.Rand, numDecks, numPlayers int, opts ...Option) *Game {
	if numPlayers < 1 {
		numPlayers = 1
	}
	g := &Game{
		numPlayers: numPlayers,
		state:      StateEmpty,
		shoe:       deck.New(rng, numDecks),
		players:    make([]Hand, numPlayers),
		tiePolicy:  TieDealerWins,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NumPlayers returns the fixed player count for this game.
func (g *Game) NumPlayers() int {
	return g.numPlayers
}

// State returns the current lifecycle phase.
func (g *Game) State() State {
	return g.state
}

// Remaining returns the number of undrawn cards in the shoe.
func (g *Game) Remaining() int {
	return g.shoe.Remaining()
}

// InitialDeal draws two cards into the dealer hand and two into each
// player hand. Only valid on an undealt game; there is no re-deal.
// On a draw failure the game is left undealt with no cards moved.
func (g *Game) InitialDeal() error {
	if g.state != StateEmpty {
		return fmt.Errorf("%w: cannot deal in state %s", ErrInvalidState, g.state)
	}

	needed := 2 * (g.numPlayers + 1)
	if g.shoe.Remaining() < needed {
		return fmt.Errorf("initial deal needs %d cards: %w", needed, deck.ErrExhausted)
	}

	for round := 0; round < 2; round++ {
		card, err := g.shoe.Draw()
		if err != nil {
			return err
		}
		g.dealer.Append(card)
		for i := range g.players {
			card, err := g.shoe.Draw()
			if err != nil {
				return err
			}
			g.players[i].Append(card)
		}
	}

	g.state = StateDealt
	return nil
}

// PlayerDraw draws one card into the given player's hand and returns
// it. The engine does not police stand/bust turn order; stopping is the
// caller's policy.
func (g *Game) PlayerDraw(playerIdx int) (deck.Card, error) {
	if g.state != StateDealt && g.state != StateResolving {
		return deck.Card{}, fmt.Errorf("%w: cannot draw in state %s", ErrInvalidState, g.state)
	}
	if playerIdx < 0 || playerIdx >= g.numPlayers {
		return deck.Card{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, playerIdx, g.numPlayers)
	}

	card, err := g.shoe.Draw()
	if err != nil {
		return deck.Card{}, err
	}
	g.players[playerIdx].Append(card)
	return card, nil
}

// DealerDraw advances the dealer's automated play-out by at most one
// card: hit below a hard 17, stand at 17 or better. It returns true
// once the dealer is done; callers invoke it repeatedly until then,
// and calling again on a resolved game keeps signaling completion.
// A failed draw leaves the state untouched.
func (g *Game) DealerDraw() (stop bool, err error) {
	switch g.state {
	case StateResolved:
		return true, nil
	case StateDealt, StateResolving:
	default:
		return false, fmt.Errorf("%w: cannot play dealer in state %s", ErrInvalidState, g.state)
	}

	total, _ := g.dealer.Value()
	if total >= dealerStandTotal {
		g.state = StateResolved
		return true, nil
	}

	card, err := g.shoe.Draw()
	if err != nil {
		return false, err
	}
	g.state = StateResolving
	g.dealer.Append(card)

	total, _ = g.dealer.Value()
	if total >= dealerStandTotal {
		g.state = StateResolved
		return true, nil
	}
	return false, nil
}

// Stacks returns a read-only snapshot of the dealer and player card
// sequences. Callable in any state; hands are empty before the deal.
func (g *Game) Stacks() (dealer []deck.Card, players [][]deck.Card) {
	dealer = g.dealer.Cards()
	players = make([][]deck.Card, g.numPlayers)
	for i := range g.players {
		players[i] = g.players[i].Cards()
	}
	return dealer, players
}

// Winners computes one outcome per player, in player order. It is a
// pure read and may be called in any state; until the dealer holds two
// cards every outcome is NONE.
func (g *Game) Winners() []Outcome {
	outcomes := make([]Outcome, g.numPlayers)

	if g.dealer.Len() < 2 {
		for i := range outcomes {
			outcomes[i] = OutcomeNone
		}
		return outcomes
	}

	dealerTotal, _ := g.dealer.Value()
	dealerBust := dealerTotal > 21
	dealerNatural := g.dealer.IsBlackjack()

	for i := range g.players {
		outcomes[i] = g.resolve(&g.players[i], dealerTotal, dealerBust, dealerNatural)
	}
	return outcomes
}

func (g *Game) resolve(player *Hand, dealerTotal int, dealerBust, dealerNatural bool) Outcome {
	playerTotal, _ := player.Value()

	switch {
	case playerTotal > 21:
		return OutcomeDealer
	case dealerBust:
		return OutcomePlayer
	case player.IsBlackjack() && !dealerNatural:
		// A natural beats any non-natural 21, including ties on total.
		return OutcomePlayer
	case playerTotal > dealerTotal:
		return OutcomePlayer
	case playerTotal < dealerTotal:
		return OutcomeDealer
	default:
		if g.tiePolicy == TiePush {
			return OutcomeNone
		}
		return OutcomeDealer
	}
}
