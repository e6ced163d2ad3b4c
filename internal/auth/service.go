package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/misba/aimock/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	store  *Store
	secret []byte
	ttl    time.Duration
}

func NewService(store *Store, secret string, ttl time.Duration) *Service {
	return &Service{store: store, secret: []byte(secret), ttl: ttl}
}

// Signup registers a new account and returns a session token.
func (s *Service) Signup(email, password string) (string, error) {
	if err := domain.ValidateCredentials(email, password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	rec := &record{
		ID:        domain.UserID(uuid.NewString()),
		Email:     email,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if err := s.store.create(rec); err != nil {
		return "", err
	}
	log.Info().Str("module", "auth").Str("email", email).Msg("user registered")
	return s.issue(rec)
}

// Login verifies credentials and returns a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(email, password string) (string, error) {
	rec, err := s.store.getByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(rec.Hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(rec)
}

func (s *Service) issue(rec *record) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: rec.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(rec.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns its claims.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// User returns the account behind a verified claim set.
func (s *Service) User(claims *Claims) (*domain.User, error) {
	rec, err := s.store.getByEmail(claims.Email)
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: rec.ID, Email: rec.Email}, nil
}
