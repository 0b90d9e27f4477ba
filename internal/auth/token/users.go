package token

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrAuthenticationFailed indicates a wrong username or password.
var ErrAuthenticationFailed = errors.New("authentication failed")

// User is an account known to the token issuance endpoint.
type User struct {
	Username string
	Email    string
	Disabled bool

	passwordHash []byte
}

// UserStore authenticates users for token issuance. Backed by an in-memory
// map; a real deployment plugs in its own directory behind the same method
// set.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*User)}
}

// Add registers a user with a bcrypt-hashed password.
func (s *UserStore) Add(username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &User{
		Username:     username,
		Email:        email,
		passwordHash: hash,
	}
	return nil
}

// Authenticate verifies a username/password pair.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()

	if !ok || user.Disabled {
		return nil, ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

// Get returns a user by username.
func (s *UserStore) Get(username string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	return user, ok
}
