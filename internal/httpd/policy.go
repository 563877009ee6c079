package httpd

import (
	"fmt"

	"github.com/lox/blackjack-server/internal/registry"
)

// Relationship is the identity/session relationship an operation
// demands. Each route declares one; the check runs uniformly before
// dispatch instead of being re-implemented per handler.
type Relationship int

const (
	// Public requires no caller identity at all.
	Public Relationship = iota
	// Authenticated requires valid credentials but no session role.
	Authenticated
	// OwnerOnly requires the caller to be the session's creator.
	OwnerOnly
	// ParticipantAtIndex requires the caller to occupy the player seat
	// named in the request path.
	ParticipantAtIndex
	// AnyParticipant requires the caller to have joined the session.
	AnyParticipant
	// OwnerOrParticipant admits either role.
	OwnerOrParticipant
)

// authorize checks identity against session for the given relationship.
// playerIdx is only consulted for ParticipantAtIndex. A nil error means
// the operation may dispatch.
func authorize(rel Relationship, session *registry.Session, identity string, playerIdx int) error {
	switch rel {
	case Public, Authenticated:
		return nil

	case OwnerOnly:
		if session.Owner() != identity {
			return fmt.Errorf("%w: not owner of game", registry.ErrUnauthorized)
		}
		return nil

	case ParticipantAtIndex:
		seated, err := session.ParticipantAt(playerIdx)
		if err != nil {
			return err
		}
		if seated != identity {
			return fmt.Errorf("%w: not player at index %d", registry.ErrUnauthorized, playerIdx)
		}
		return nil

	case AnyParticipant:
		if _, err := session.PlayerIndex(identity); err != nil {
			return fmt.Errorf("%w: not a player in this game", registry.ErrUnauthorized)
		}
		return nil

	case OwnerOrParticipant:
		if session.Owner() == identity {
			return nil
		}
		if _, err := session.PlayerIndex(identity); err == nil {
			return nil
		}
		return fmt.Errorf("%w: not owner or player", registry.ErrUnauthorized)

	default:
		return registry.ErrUnauthorized
	}
}
