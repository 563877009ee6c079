// Package registry maps session identifiers to live blackjack games and
// their ownership metadata. The map itself is guarded by one mutex;
// every session carries its own lock so gameplay on different sessions
// never contends, while draws on the same session are serialized.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lox/blackjack-server/internal/blackjack"
	"github.com/lox/blackjack-server/internal/deck"
	"github.com/lox/blackjack-server/internal/randutil"
)

var (
	// ErrNotFound indicates an unknown session identifier.
	ErrNotFound = errors.New("registry: session not found")

	// ErrUnauthorized indicates an identity or termination-secret
	// mismatch. Never downgraded to ErrNotFound; the two are distinct
	// caller-visible categories.
	ErrUnauthorized = errors.New("registry: not authorized")

	// ErrFull indicates a join attempted on a session already at
	// participant capacity.
	ErrFull = errors.New("registry: session is full")
)

// DefaultNumDecks is the shoe size used when creation does not name one.
const DefaultNumDecks = 2

// Summary is the listing view of a session.
type Summary struct {
	ID         string `json:"id"`
	NumPlayers int    `json:"num_players"`
}

// Created reports the identifiers handed back to a session creator.
type Created struct {
	ID                string
	TerminationSecret string
	Owner             string
}

// Session pairs one game engine with its ownership metadata. All
// methods lock the session, so two draws against the same game can
// never tear a hand, and a terminate cannot race an in-flight draw.
type Session struct {
	id      string
	created time.Time

	mu         sync.Mutex
	game       *blackjack.Game
	owner      string
	players    []string
	termSecret string
	terminated bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Owner returns the identity that created the session.
func (s *Session) Owner() string {
	return s.owner
}

// NumPlayers returns the session's fixed player capacity.
func (s *Session) NumPlayers() int {
	return s.game.NumPlayers()
}

// guard runs fn with the session locked, failing with ErrNotFound once
// the session has been terminated. Operations that begin after a
// successful terminate must not observe the session at all.
func (s *Session) guard(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrNotFound
	}
	return fn()
}

// Deal performs the initial two-card deal.
func (s *Session) Deal() error {
	return s.guard(func() error {
		return s.game.InitialDeal()
	})
}

// PlayerDraw draws one card for the player at idx.
func (s *Session) PlayerDraw(idx int) (deck.Card, error) {
	var card deck.Card
	err := s.guard(func() error {
		var err error
		card, err = s.game.PlayerDraw(idx)
		return err
	})
	return card, err
}

// DealerPlay runs the dealer's automated play-out to completion and
// returns the dealer's final hand.
func (s *Session) DealerPlay() ([]deck.Card, error) {
	var dealer []deck.Card
	err := s.guard(func() error {
		for {
			stop, err := s.game.DealerDraw()
			if err != nil {
				return err
			}
			if stop {
				break
			}
		}
		dealer, _ = s.game.Stacks()
		return nil
	})
	return dealer, err
}

// Stacks returns a snapshot of the dealer and player hands.
func (s *Session) Stacks() (dealer []deck.Card, players [][]deck.Card, err error) {
	err = s.guard(func() error {
		dealer, players = s.game.Stacks()
		return nil
	})
	return dealer, players, err
}

// Winners computes the per-player outcomes. Outcomes are not secret, so
// no caller identity is required.
func (s *Session) Winners() ([]blackjack.Outcome, error) {
	var outcomes []blackjack.Outcome
	err := s.guard(func() error {
		outcomes = s.game.Winners()
		return nil
	})
	return outcomes, err
}

// AddParticipant appends identity to the participant list and returns
// its zero-based, lifetime-stable index. The list is capped at the
// session's player capacity.
func (s *Session) AddParticipant(identity string) (int, error) {
	idx := -1
	err := s.guard(func() error {
		if len(s.players) >= s.game.NumPlayers() {
			return ErrFull
		}
		s.players = append(s.players, identity)
		idx = len(s.players) - 1
		return nil
	})
	return idx, err
}

// PlayerIndex returns the index identity occupies in the participant
// list, or ErrNotFound if it never joined.
func (s *Session) PlayerIndex(identity string) (int, error) {
	idx := -1
	err := s.guard(func() error {
		for i, p := range s.players {
			if p == identity {
				idx = i
				return nil
			}
		}
		return ErrNotFound
	})
	return idx, err
}

// ParticipantAt returns the identity joined at idx, or ErrNotFound when
// no one holds that seat yet.
func (s *Session) ParticipantAt(idx int) (string, error) {
	identity := ""
	err := s.guard(func() error {
		if idx < 0 || idx >= len(s.players) {
			return ErrNotFound
		}
		identity = s.players[idx]
		return nil
	})
	return identity, err
}

// Registry is the process-wide session store.
type Registry struct {
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithNowFunc overrides the registry's time source. The TTL janitor
// injects its clock through this.
func WithNowFunc(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New constructs an empty registry.
func New(logger *log.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:   logger.WithPrefix("registry"),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOption configures a single session at creation.
type CreateOption func(*createOptions)

type createOptions struct {
	numDecks  int
	tiePolicy blackjack.TiePolicy
	seed      *int64
}

// WithNumDecks sets the shoe size; the default is two decks.
func WithNumDecks(n int) CreateOption {
	return func(o *createOptions) {
		o.numDecks = n
	}
}

// WithTiePolicy sets the winner tie-break rule for the session.
func WithTiePolicy(p blackjack.TiePolicy) CreateOption {
	return func(o *createOptions) {
		o.tiePolicy = p
	}
}

// WithSeed fixes the shuffle seed. Tests only; live sessions draw their
// seed from the CSPRNG.
func WithSeed(seed int64) CreateOption {
	return func(o *createOptions) {
		s := seed
		o.seed = &s
	}
}

// Create allocates a fresh session owned by owner and sized for
// numPlayers. The returned identifier and termination secret are
// UUIDv4 strings: 36 characters, unguessable, never reused.
func (r *Registry) Create(numPlayers int, owner string, opts ...CreateOption) (Created, error) {
	options := createOptions{
		numDecks:  DefaultNumDecks,
		tiePolicy: blackjack.TieDealerWins,
	}
	for _, opt := range opts {
		opt(&options)
	}

	rng := randutil.NewCrypto()
	if options.seed != nil {
		rng = randutil.New(*options.seed)
	}

	session := &Session{
		id:         uuid.NewString(),
		created:    r.now(),
		game:       blackjack.NewGame(rng, options.numDecks, numPlayers, blackjack.WithTiePolicy(options.tiePolicy)),
		owner:      owner,
		termSecret: uuid.NewString(),
	}

	r.mu.Lock()
	r.sessions[session.id] = session
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("Session created",
		"session", session.id,
		"owner", owner,
		"players", numPlayers,
		"decks", options.numDecks,
		"active", total)

	return Created{
		ID:                session.id,
		TerminationSecret: session.termSecret,
		Owner:             owner,
	}, nil
}

// Get resolves a session by identifier.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// List returns a snapshot of active sessions. Only the map copy happens
// under the lock.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.sessions, func(id string, s *Session) Summary {
		return Summary{ID: id, NumPlayers: s.game.NumPlayers()}
	})
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Terminate removes the session iff attempter is the owner and secret
// matches the termination secret exactly. The session lock is held
// across the liveness check and the removal, so a draw already holding
// the lock completes before the session disappears, and any operation
// starting afterwards sees ErrNotFound.
func (r *Registry) Terminate(id, secret, attempter string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.terminated {
		return ErrNotFound
	}
	if session.owner != attempter || session.termSecret != secret {
		return ErrUnauthorized
	}
	session.terminated = true

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	r.logger.Info("Session terminated", "session", id, "owner", attempter)
	return nil
}

// expire removes sessions created before cutoff, returning how many
// were dropped. Used by the janitor only.
func (r *Registry) expire(cutoff time.Time) int {
	r.mu.RLock()
	candidates := make([]*Session, 0)
	for _, s := range r.sessions {
		if s.created.Before(cutoff) {
			candidates = append(candidates, s)
		}
	}
	r.mu.RUnlock()

	expired := 0
	for _, s := range candidates {
		s.mu.Lock()
		if !s.terminated {
			s.terminated = true
			expired++
			r.mu.Lock()
			delete(r.sessions, s.id)
			r.mu.Unlock()
			r.logger.Info("Session expired", "session", s.id, "owner", s.owner)
		}
		s.mu.Unlock()
	}
	return expired
}
