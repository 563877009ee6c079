package httpd

import (
	"github.com/samber/lo"

	"github.com/lox/blackjack-server/internal/deck"
)

// Response payloads are the wire contract; clients key off these
// field names.

type homeResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type createUserResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type createGameResponse struct {
	Success             bool   `json:"success"`
	GameID              string `json:"game_id"`
	TerminationPassword string `json:"termination_password"`
}

type initializeResponse struct {
	Success      bool       `json:"success"`
	DealerStack  []string   `json:"dealer_stack"`
	PlayerStacks [][]string `json:"player_stacks"`
}

type addPlayerResponse struct {
	Success        bool   `json:"success"`
	GameID         string `json:"game_id"`
	PlayerUsername string `json:"player_username"`
	PlayerIdx      int    `json:"player_idx"`
}

type hitResponse struct {
	Player      int      `json:"player"`
	DrawnCard   string   `json:"drawn_card"`
	PlayerStack []string `json:"player_stack"`
}

type stackResponse struct {
	Player      int      `json:"player"`
	PlayerStack []string `json:"player_stack"`
}

type playerIdxResponse struct {
	Success        bool   `json:"success"`
	GameID         string `json:"game_id"`
	PlayerUsername string `json:"player_username"`
	PlayerIdx      int    `json:"player_idx"`
}

type dealerPlayResponse struct {
	Player      string   `json:"player"`
	PlayerStack []string `json:"player_stack"`
}

type winnersResponse struct {
	GameID  string   `json:"game_id"`
	Winners []string `json:"winners"`
}

type terminateResponse struct {
	Success   bool   `json:"success"`
	DeletedID string `json:"deleted_id"`
}

// Event is a websocket notification pushed to session subscribers.
type Event struct {
	Type    string   `json:"type"`
	GameID  string   `json:"game_id"`
	Player  *int     `json:"player,omitempty"`
	Card    string   `json:"card,omitempty"`
	Dealer  []string `json:"dealer_stack,omitempty"`
	Winners []string `json:"winners,omitempty"`
}

// Event types pushed over the session feed.
const (
	EventDealt      = "dealt"
	EventPlayerHit  = "player_hit"
	EventDealerPlay = "dealer_play"
	EventTerminated = "terminated"
)

func renderCards(cards []deck.Card) []string {
	return lo.Map(cards, func(c deck.Card, _ int) string {
		return c.String()
	})
}

func renderStacks(stacks [][]deck.Card) [][]string {
	return lo.Map(stacks, func(cards []deck.Card, _ int) []string {
		return renderCards(cards)
	})
}
