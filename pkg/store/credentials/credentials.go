// Package credentials implements the dev-only username/password store used
// to mint tokens through the login endpoint.
//
// Records are kept as a JSON array in a single file. Passwords are stored in
// plaintext; this store exists for local development and testing only and is
// not a hardened credential backend.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrExists             = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Record is a single stored user.
type Record struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store reads and writes the credential file. The mutex serializes
// read-modify-write cycles so concurrent signups cannot drop records.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store backed by the JSON file at path. The file is created
// lazily on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Create appends a new user record. Returns ErrExists if the username is
// already taken.
func (s *Store) Create(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == username {
			return ErrExists
		}
	}

	users = append(users, Record{Username: username, Password: password})
	return s.save(users)
}

// Verify checks a username/password pair against the stored records.
func (s *Store) Verify(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == username {
			if u.Password == password {
				return nil
			}
			return ErrInvalidCredentials
		}
	}
	return ErrInvalidCredentials
}

// load reads all records; a missing file reads as an empty store.
func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	var users []Record
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	return users, nil
}

func (s *Store) save(users []Record) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create credential store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return nil
}
