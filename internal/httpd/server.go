// Package httpd is the boundary layer: it authenticates callers,
// applies the per-route authorization policy, and translates between
// HTTP/JSON and the registry/engine contracts. No game rules live here.
package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack-server/internal/auth"
	"github.com/lox/blackjack-server/internal/blackjack"
	"github.com/lox/blackjack-server/internal/deck"
	"github.com/lox/blackjack-server/internal/registry"
)

// UserCreator is the account-creation surface of the user store,
// separate from Authenticator so open registration can be disabled.
type UserCreator interface {
	CreateUser(username string) (string, error)
}

// Server is the HTTP boundary over one registry and one authenticator.
type Server struct {
	addr          string
	logger        *log.Logger
	registry      *registry.Registry
	authenticator auth.Authenticator
	users         UserCreator // nil disables /user/create
	maxPlayers    int
	defaultDecks  int
	hub           *EventHub
	upgrader      websocket.Upgrader
	httpServer    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithGameLimits caps the player count accepted at game creation and
// sets the shoe size used when the caller does not request one.
func WithGameLimits(maxPlayers, defaultDecks int) ServerOption {
	return func(s *Server) {
		s.maxPlayers = maxPlayers
		s.defaultDecks = defaultDecks
	}
}

// NewServer wires the boundary to explicitly injected collaborators.
func NewServer(addr string, reg *registry.Registry, authn auth.Authenticator, users UserCreator, logger *log.Logger, opts ...ServerOption) *Server {
	s := &Server{
		addr:          addr,
		logger:        logger.WithPrefix("httpd"),
		registry:      reg,
		authenticator: authn,
		users:         users,
		maxPlayers:    8,
		defaultDecks:  registry.DefaultNumDecks,
		hub:           NewEventHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /games", s.handleListGames)
	mux.HandleFunc("POST /user/create", s.handleCreateUser)
	mux.HandleFunc("GET /game/create/{num_players}", s.withIdentity(s.handleCreateGame))
	mux.HandleFunc("POST /game/{id}/initialize", s.withIdentity(s.handleInitialize))
	mux.HandleFunc("POST /game/{id}/add_player", s.withIdentity(s.handleAddPlayer))
	mux.HandleFunc("POST /game/{id}/player/{idx}/hit", s.withIdentity(s.handleHit))
	mux.HandleFunc("GET /game/{id}/player/{idx}/stack", s.withIdentity(s.handleStack))
	mux.HandleFunc("POST /game/{id}/get_player_idx", s.withIdentity(s.handlePlayerIdx))
	mux.HandleFunc("POST /game/{id}/dealer/play", s.withIdentity(s.handleDealerPlay))
	mux.HandleFunc("GET /game/{id}/winners", s.handleWinners)
	mux.HandleFunc("POST /game/{id}/terminate", s.withIdentity(s.handleTerminate))
	mux.HandleFunc("GET /game/{id}/ws", s.withIdentity(s.handleWatch))

	return mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Hub exposes the event hub, mainly for tests.
func (s *Server) Hub() *EventHub {
	return s.hub
}

type identityHandler func(w http.ResponseWriter, r *http.Request, identity string)

// withIdentity enforces HTTP Basic credentials through the injected
// authenticator before the wrapped handler runs. Bad credentials are a
// 401; role failures inside handlers are a 403 — the two are never
// conflated.
func (s *Server) withIdentity(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !s.authenticator.Validate(username, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="blackjack"`)
			s.writeError(w, http.StatusUnauthorized, "user not found with those credentials")
			return
		}
		next(w, r, username)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, homeResponse{Message: "Welcome to Blackjack!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		s.writeError(w, http.StatusForbidden, "user registration is disabled")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	password, err := s.users.CreateUser(username)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			s.writeError(w, http.StatusConflict, "username already exists")
			return
		}
		s.logger.Error("Failed to create user", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	s.writeJSON(w, http.StatusCreated, createUserResponse{
		Success:  true,
		Username: username,
		Password: password,
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request, identity string) {
	numPlayers, err := strconv.Atoi(r.PathValue("num_players"))
	if err != nil || numPlayers < 1 {
		s.writeError(w, http.StatusBadRequest, "num_players must be a positive integer")
		return
	}
	if numPlayers > s.maxPlayers {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("num_players cannot exceed %d", s.maxPlayers))
		return
	}

	opts := []registry.CreateOption{registry.WithNumDecks(s.defaultDecks)}
	if decksStr := r.URL.Query().Get("num_decks"); decksStr != "" {
		numDecks, err := strconv.Atoi(decksStr)
		if err != nil || numDecks < 1 {
			s.writeError(w, http.StatusBadRequest, "num_decks must be a positive integer")
			return
		}
		opts = append(opts, registry.WithNumDecks(numDecks))
	}

	created, err := s.registry.Create(numPlayers, identity, opts...)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createGameResponse{
		Success:             true,
		GameID:              created.ID,
		TerminationPassword: created.TerminationSecret,
	})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, identity string) {
	session, ok := s.session(w, r, OwnerOnly, identity, 0)
	if !ok {
		return
	}

	if err := session.Deal(); err != nil {
		s.writeDomainError(w, err)
		return
	}

	dealer, players, err := session.Stacks()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventDealt, GameID: session.ID(), Dealer: renderCards(dealer)})
	s.writeJSON(w, http.StatusOK, initializeResponse{
		Success:      true,
		DealerStack:  renderCards(dealer),
		PlayerStacks: renderStacks(players),
	})
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request, identity string) {
	username := r.URL.Query().Get("username")
	if username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	session, ok := s.session(w, r, OwnerOnly, identity, 0)
	if !ok {
		return
	}

	idx, err := session.AddParticipant(username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, addPlayerResponse{
		Success:        true,
		GameID:         session.ID(),
		PlayerUsername: username,
		PlayerIdx:      idx,
	})
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request, identity string) {
	idx, ok := s.playerIdx(w, r)
	if !ok {
		return
	}
	session, ok := s.session(w, r, ParticipantAtIndex, identity, idx)
	if !ok {
		return
	}

	card, err := session.PlayerDraw(idx)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	_, players, err := session.Stacks()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventPlayerHit, GameID: session.ID(), Player: &idx, Card: card.String()})
	s.writeJSON(w, http.StatusOK, hitResponse{
		Player:      idx,
		DrawnCard:   card.String(),
		PlayerStack: renderCards(players[idx]),
	})
}

func (s *Server) handleStack(w http.ResponseWriter, r *http.Request, identity string) {
	idx, ok := s.playerIdx(w, r)
	if !ok {
		return
	}
	session, ok := s.session(w, r, ParticipantAtIndex, identity, idx)
	if !ok {
		return
	}

	_, players, err := session.Stacks()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stackResponse{
		Player:      idx,
		PlayerStack: renderCards(players[idx]),
	})
}

func (s *Server) handlePlayerIdx(w http.ResponseWriter, r *http.Request, identity string) {
	session, ok := s.session(w, r, AnyParticipant, identity, 0)
	if !ok {
		return
	}

	// Look up the queried player, defaulting to the caller.
	username := r.URL.Query().Get("username")
	if username == "" {
		username = identity
	}

	idx, err := session.PlayerIndex(username)
	if err != nil {
		s.writeDomainError(w, fmt.Errorf("player %s not in game: %w", username, err))
		return
	}

	s.writeJSON(w, http.StatusOK, playerIdxResponse{
		Success:        true,
		GameID:         session.ID(),
		PlayerUsername: username,
		PlayerIdx:      idx,
	})
}

func (s *Server) handleDealerPlay(w http.ResponseWriter, r *http.Request, identity string) {
	session, ok := s.session(w, r, OwnerOnly, identity, 0)
	if !ok {
		return
	}

	dealer, err := session.DealerPlay()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventDealerPlay, GameID: session.ID(), Dealer: renderCards(dealer)})
	s.writeJSON(w, http.StatusOK, dealerPlayResponse{
		Player:      "dealer",
		PlayerStack: renderCards(dealer),
	})
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	// Outcomes are not secret: no credentials required.
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	outcomes, err := session.Winners()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	winners := make([]string, len(outcomes))
	for i, o := range outcomes {
		winners[i] = string(o)
	}
	s.writeJSON(w, http.StatusOK, winnersResponse{GameID: session.ID(), Winners: winners})
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request, identity string) {
	password := r.URL.Query().Get("password")
	if password == "" {
		s.writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	session, ok := s.session(w, r, OwnerOnly, identity, 0)
	if !ok {
		return
	}

	if err := s.registry.Terminate(session.ID(), password, identity); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventTerminated, GameID: session.ID()})
	s.hub.CloseSession(session.ID())
	s.writeJSON(w, http.StatusOK, terminateResponse{Success: true, DeletedID: session.ID()})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request, identity string) {
	session, ok := s.session(w, r, OwnerOrParticipant, identity, 0)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	sub := newSubscriber(conn, s.logger)
	s.hub.subscribe(session.ID(), sub)
	s.logger.Info("Subscriber connected", "session", session.ID(), "identity", identity)

	go sub.writePump()
	go sub.readPump(func() {
		s.hub.unsubscribe(session.ID(), sub)
		s.logger.Info("Subscriber disconnected", "session", session.ID(), "identity", identity)
	})
}

// session resolves the session from the path and applies the route's
// authorization policy. On failure the response has been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request, rel Relationship, identity string, playerIdx int) (*registry.Session, bool) {
	id := r.PathValue("id")
	session, err := s.registry.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Game %s not found.", id))
		return nil, false
	}
	if err := authorize(rel, session, identity, playerIdx); err != nil {
		s.writeDomainError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) playerIdx(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil || idx < 0 {
		s.writeError(w, http.StatusBadRequest, "player index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

// writeDomainError maps core failures onto transport categories. The
// categories stay distinct end to end: a wrong secret is never reported
// as a missing game.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrUnauthorized):
		s.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrFull):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, blackjack.ErrInvalidState), errors.Is(err, blackjack.ErrIndexOutOfRange):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, deck.ErrExhausted):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("Unhandled error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}
