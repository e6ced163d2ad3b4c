// Package auth implements signup/login with bcrypt-hashed credentials
// persisted in badger, and stateless JWT session tokens.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/misba/aimock/internal/domain"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

const userKeyPrefix = "user:"

// record is the stored shape of an account.
type record struct {
	ID        domain.UserID `json:"id"`
	Email     string        `json:"email"`
	Hash      []byte        `json:"hash"`
	CreatedAt time.Time     `json:"created_at"`
}

type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the user database at dir. An empty dir opens
// an in-memory database, which is what the tests use.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func userKey(email string) []byte {
	return []byte(userKeyPrefix + email)
}

// create inserts a new account, failing if the email is taken.
func (s *Store) create(rec *record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(rec.Email)
		_, err := txn.Get(key)
		if err == nil {
			return ErrUserExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
}

func (s *Store) getByEmail(email string) (*record, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
