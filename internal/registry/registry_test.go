package registry

import (
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack-server/internal/blackjack"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestCreateReturnsUnguessableIdentifiers(t *testing.T) {
	r := New(testLogger())

	created, err := r.Create(2, "alice")
	require.NoError(t, err)

	// UUIDv4 strings: unguessable and fixed-width.
	assert.Len(t, created.ID, 36)
	assert.Len(t, created.TerminationSecret, 36)
	assert.NotEqual(t, created.ID, created.TerminationSecret)
	assert.Equal(t, "alice", created.Owner)

	session, err := r.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Owner())
	assert.Equal(t, 2, session.NumPlayers())
}

func TestCreateNeverReusesIdentifiers(t *testing.T) {
	r := New(testLogger())
	seen := make(map[string]bool)

	for range 100 {
		created, err := r.Create(1, "alice")
		require.NoError(t, err)
		require.False(t, seen[created.ID], "duplicate session id %s", created.ID)
		seen[created.ID] = true
	}
}

func TestGetUnknownSession(t *testing.T) {
	r := New(testLogger())
	_, err := r.Get("no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	r := New(testLogger())
	assert.Empty(t, r.List())

	a, _ := r.Create(1, "alice")
	b, _ := r.Create(3, "bob")

	summaries := r.List()
	require.Len(t, summaries, 2)

	byID := make(map[string]Summary)
	for _, s := range summaries {
		byID[s.ID] = s
	}
	assert.Equal(t, 1, byID[a.ID].NumPlayers)
	assert.Equal(t, 3, byID[b.ID].NumPlayers)
}

func TestTerminateAuthorization(t *testing.T) {
	r := New(testLogger())
	created, err := r.Create(2, "alice")
	require.NoError(t, err)

	// Wrong secret, right owner.
	err = r.Terminate(created.ID, "wrong-secret", "alice")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Right secret, wrong owner.
	err = r.Terminate(created.ID, created.TerminationSecret, "bob")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Failed attempts must not have removed the session.
	_, err = r.Get(created.ID)
	require.NoError(t, err)

	// Exact match succeeds exactly once.
	err = r.Terminate(created.ID, created.TerminationSecret, "alice")
	require.NoError(t, err)

	err = r.Terminate(created.ID, created.TerminationSecret, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTerminatedSessionRejectsOperations(t *testing.T) {
	r := New(testLogger())
	created, err := r.Create(1, "alice")
	require.NoError(t, err)

	session, err := r.Get(created.ID)
	require.NoError(t, err)

	require.NoError(t, r.Terminate(created.ID, created.TerminationSecret, "alice"))

	// A handle fetched before termination must not reach the game.
	assert.ErrorIs(t, session.Deal(), ErrNotFound)
	_, err = session.PlayerDraw(0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = session.Stacks()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = session.AddParticipant("bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddParticipant(t *testing.T) {
	r := New(testLogger())
	created, err := r.Create(3, "alice")
	require.NoError(t, err)

	session, err := r.Get(created.ID)
	require.NoError(t, err)

	for i, name := range []string{"alice", "bob", "carol"} {
		idx, err := session.AddParticipant(name)
		require.NoError(t, err)
		assert.Equal(t, i, idx, "i-th join returns index i")
	}

	_, err = session.AddParticipant("dave")
	assert.ErrorIs(t, err, ErrFull)

	idx, err := session.PlayerIndex("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = session.PlayerIndex("dave")
	assert.ErrorIs(t, err, ErrNotFound)

	seated, err := session.ParticipantAt(2)
	require.NoError(t, err)
	assert.Equal(t, "carol", seated)

	_, err = session.ParticipantAt(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionGameplayFlow(t *testing.T) {
	r := New(testLogger())
	created, err := r.Create(2, "alice", WithSeed(42), WithNumDecks(4))
	require.NoError(t, err)

	session, err := r.Get(created.ID)
	require.NoError(t, err)

	require.NoError(t, session.Deal())

	dealer, players, err := session.Stacks()
	require.NoError(t, err)
	assert.Len(t, dealer, 2)
	require.Len(t, players, 2)
	assert.Len(t, players[0], 2)
	assert.Len(t, players[1], 2)

	card, err := session.PlayerDraw(0)
	require.NoError(t, err)
	assert.NotEmpty(t, card.String())

	finalDealer, err := session.DealerPlay()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(finalDealer), 2)

	// Replaying a resolved dealer is a no-op, not an error.
	again, err := session.DealerPlay()
	require.NoError(t, err)
	assert.Equal(t, finalDealer, again)

	outcomes, err := session.Winners()
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Contains(t, []blackjack.Outcome{
			blackjack.OutcomeNone, blackjack.OutcomeDealer, blackjack.OutcomePlayer,
		}, o)
	}
}

func TestConcurrentDrawsOnSamePlayer(t *testing.T) {
	const drawers = 16

	r := New(testLogger())
	// A big shoe so concurrent hits never exhaust it.
	created, err := r.Create(1, "alice", WithSeed(1), WithNumDecks(8))
	require.NoError(t, err)

	session, err := r.Get(created.ID)
	require.NoError(t, err)
	require.NoError(t, session.Deal())

	var wg sync.WaitGroup
	for range drawers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.PlayerDraw(0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No lost updates, no duplicate application: exactly 2 dealt cards
	// plus one per draw.
	_, players, err := session.Stacks()
	require.NoError(t, err)
	assert.Len(t, players[0], 2+drawers)
}

func TestConcurrentCreateAndList(t *testing.T) {
	const writers = 8
	r := New(testLogger())

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				_, err := r.Create(1, "alice")
				assert.NoError(t, err)
				r.List()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*10, r.Len())
}

func TestTerminateDoesNotRaceDraws(t *testing.T) {
	r := New(testLogger())
	created, err := r.Create(1, "alice", WithSeed(2), WithNumDecks(8))
	require.NoError(t, err)

	session, err := r.Get(created.ID)
	require.NoError(t, err)
	require.NoError(t, session.Deal())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			if _, err := session.PlayerDraw(0); err != nil {
				// Once terminated the only acceptable failure is NotFound.
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, r.Terminate(created.ID, created.TerminationSecret, "alice"))
	}()
	wg.Wait()

	_, err = r.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
