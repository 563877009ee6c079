package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters per OWASP recommendations.
const (
	argonMemory      = 64 * 1024 // 64 MB
	argonIterations  = 3
	argonParallelism = 2
	saltLength       = 16
	keyLength        = 32

	// tokenBytes yields a 32-character url-safe password token.
	tokenBytes = 24
)

type account struct {
	salt []byte
	hash []byte
}

// UserStore is an in-memory account store. Passwords are generated
// server-side at account creation and only their Argon2id hash is
// retained. Accounts vanish on restart, same as sessions.
type UserStore struct {
	mu       sync.RWMutex
	accounts map[string]account
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		accounts: make(map[string]account),
	}
}

// CreateUser registers username and returns the generated password
// token. The plaintext token is returned exactly once and never stored.
func (s *UserStore) CreateUser(username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(token), salt, argonIterations, argonMemory, argonParallelism, keyLength)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[username]; exists {
		return "", ErrUserExists
	}
	s.accounts[username] = account{salt: salt, hash: hash}
	return token, nil
}

// Validate implements Authenticator by re-deriving the hash and
// comparing in constant time.
func (s *UserStore) Validate(identity, secret string) bool {
	s.mu.RLock()
	acct, ok := s.accounts[identity]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	candidate := argon2.IDKey([]byte(secret), acct.salt, argonIterations, argonMemory, argonParallelism, keyLength)
	return subtle.ConstantTimeCompare(acct.hash, candidate) == 1
}

// Len returns the number of registered accounts.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
