// Command blackjack is a small CLI client for the blackjack server's
// HTTP API. It exists for manual play and smoke-testing a running
// server; all game logic lives server-side.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	redCard   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blackCard = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	labelText = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errText   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderCard colors a card string by suit.
func renderCard(card string) string {
	if strings.ContainsAny(card, "♥♦") {
		return redCard.Render(card)
	}
	return blackCard.Render(card)
}

func renderHand(label string, cards []string) string {
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = renderCard(c)
	}
	return fmt.Sprintf("%s %s", labelText.Render(label+":"), strings.Join(rendered, " "))
}

type client struct {
	server   string
	username string
	password string
	http     *http.Client
}

func (c *client) do(method, path string, query url.Values, authed bool, out any) error {
	u := strings.TrimRight(c.server, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	if authed {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Detail, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}

type CreateUserCmd struct {
	Username string `arg:"" help:"Username to register"`
}

func (c *CreateUserCmd) Run(cli *client) error {
	var resp struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	q := url.Values{"username": {c.Username}}
	if err := cli.do(http.MethodPost, "/user/create", q, false, &resp); err != nil {
		return err
	}
	fmt.Printf("Created user %s\nPassword: %s\n", resp.Username, resp.Password)
	return nil
}

type CreateCmd struct {
	NumPlayers int `arg:"" help:"Number of player seats"`
	Decks      int `help:"Number of decks in the shoe" default:"0"`
}

func (c *CreateCmd) Run(cli *client) error {
	var resp struct {
		GameID              string `json:"game_id"`
		TerminationPassword string `json:"termination_password"`
	}
	q := url.Values{}
	if c.Decks > 0 {
		q.Set("num_decks", fmt.Sprint(c.Decks))
	}
	path := fmt.Sprintf("/game/create/%d", c.NumPlayers)
	if err := cli.do(http.MethodGet, path, q, true, &resp); err != nil {
		return err
	}
	fmt.Printf("Game: %s\nTermination password: %s\n", resp.GameID, resp.TerminationPassword)
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(cli *client) error {
	var resp []struct {
		ID         string `json:"id"`
		NumPlayers int    `json:"num_players"`
	}
	if err := cli.do(http.MethodGet, "/games", nil, false, &resp); err != nil {
		return err
	}
	for _, g := range resp {
		fmt.Printf("%s  players=%d\n", g.ID, g.NumPlayers)
	}
	return nil
}

type AddPlayerCmd struct {
	GameID   string `arg:"" help:"Game to join"`
	Username string `arg:"" help:"Player to seat"`
}

func (c *AddPlayerCmd) Run(cli *client) error {
	var resp struct {
		PlayerIdx int `json:"player_idx"`
	}
	q := url.Values{"username": {c.Username}}
	path := fmt.Sprintf("/game/%s/add_player", c.GameID)
	if err := cli.do(http.MethodPost, path, q, true, &resp); err != nil {
		return err
	}
	fmt.Printf("Seated %s at index %d\n", c.Username, resp.PlayerIdx)
	return nil
}

type InitCmd struct {
	GameID string `arg:"" help:"Game to deal"`
}

func (c *InitCmd) Run(cli *client) error {
	var resp struct {
		DealerStack  []string   `json:"dealer_stack"`
		PlayerStacks [][]string `json:"player_stacks"`
	}
	path := fmt.Sprintf("/game/%s/initialize", c.GameID)
	if err := cli.do(http.MethodPost, path, nil, true, &resp); err != nil {
		return err
	}
	fmt.Println(renderHand("dealer", resp.DealerStack))
	for i, stack := range resp.PlayerStacks {
		fmt.Println(renderHand(fmt.Sprintf("player %d", i), stack))
	}
	return nil
}

type HitCmd struct {
	GameID string `arg:"" help:"Game id"`
	Idx    int    `arg:"" help:"Player index"`
}

func (c *HitCmd) Run(cli *client) error {
	var resp struct {
		DrawnCard   string   `json:"drawn_card"`
		PlayerStack []string `json:"player_stack"`
	}
	path := fmt.Sprintf("/game/%s/player/%d/hit", c.GameID, c.Idx)
	if err := cli.do(http.MethodPost, path, nil, true, &resp); err != nil {
		return err
	}
	fmt.Printf("Drew %s\n", renderCard(resp.DrawnCard))
	fmt.Println(renderHand(fmt.Sprintf("player %d", c.Idx), resp.PlayerStack))
	return nil
}

type StackCmd struct {
	GameID string `arg:"" help:"Game id"`
	Idx    int    `arg:"" help:"Player index"`
}

func (c *StackCmd) Run(cli *client) error {
	var resp struct {
		PlayerStack []string `json:"player_stack"`
	}
	path := fmt.Sprintf("/game/%s/player/%d/stack", c.GameID, c.Idx)
	if err := cli.do(http.MethodGet, path, nil, true, &resp); err != nil {
		return err
	}
	fmt.Println(renderHand(fmt.Sprintf("player %d", c.Idx), resp.PlayerStack))
	return nil
}

type DealerCmd struct {
	GameID string `arg:"" help:"Game id"`
}

func (c *DealerCmd) Run(cli *client) error {
	var resp struct {
		PlayerStack []string `json:"player_stack"`
	}
	path := fmt.Sprintf("/game/%s/dealer/play", c.GameID)
	if err := cli.do(http.MethodPost, path, nil, true, &resp); err != nil {
		return err
	}
	fmt.Println(renderHand("dealer", resp.PlayerStack))
	return nil
}

type WinnersCmd struct {
	GameID string `arg:"" help:"Game id"`
}

func (c *WinnersCmd) Run(cli *client) error {
	var resp struct {
		Winners []string `json:"winners"`
	}
	path := fmt.Sprintf("/game/%s/winners", c.GameID)
	if err := cli.do(http.MethodGet, path, nil, false, &resp); err != nil {
		return err
	}
	for i, w := range resp.Winners {
		fmt.Printf("player %d: %s\n", i, w)
	}
	return nil
}

type TerminateCmd struct {
	GameID   string `arg:"" help:"Game id"`
	Password string `arg:"" help:"Termination password"`
}

func (c *TerminateCmd) Run(cli *client) error {
	var resp struct {
		DeletedID string `json:"deleted_id"`
	}
	q := url.Values{"password": {c.Password}}
	path := fmt.Sprintf("/game/%s/terminate", c.GameID)
	if err := cli.do(http.MethodPost, path, q, true, &resp); err != nil {
		return err
	}
	fmt.Printf("Terminated %s\n", resp.DeletedID)
	return nil
}

var CLI struct {
	Server   string `short:"s" default:"http://localhost:8000" help:"Server base URL"`
	User     string `short:"u" env:"BLACKJACK_USER" help:"Username for basic auth"`
	Password string `short:"p" env:"BLACKJACK_PASSWORD" help:"Password for basic auth"`

	CreateUser CreateUserCmd `cmd:"" help:"Register a new user"`
	Create     CreateCmd     `cmd:"" help:"Create a game"`
	List       ListCmd       `cmd:"" help:"List active games"`
	AddPlayer  AddPlayerCmd  `cmd:"" help:"Seat a player in a game (owner only)"`
	Init       InitCmd       `cmd:"" help:"Perform the initial deal (owner only)"`
	Hit        HitCmd        `cmd:"" help:"Draw a card for a player"`
	Stack      StackCmd      `cmd:"" help:"Show a player's hand"`
	Dealer     DealerCmd     `cmd:"" help:"Play out the dealer's hand (owner only)"`
	Winners    WinnersCmd    `cmd:"" help:"Show per-player outcomes"`
	Terminate  TerminateCmd  `cmd:"" help:"Terminate a game (owner only)"`
}

func main() {
	kctx := kong.Parse(&CLI)
	cli := &client{
		server:   CLI.Server,
		username: CLI.User,
		password: CLI.Password,
		http:     http.DefaultClient,
	}
	if err := kctx.Run(cli); err != nil {
		fmt.Println(errText.Render("error: " + err.Error()))
		kctx.Exit(1)
	}
}
