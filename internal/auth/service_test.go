package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/misba/aimock/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := OpenStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store, "test-secret", time.Hour)
}

func TestService_SignupLoginRoundTrip(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t)

	// Given a registered user
	signupToken, err := svc.Signup("ada@example.com", "correct-horse")
	req.NoError(err)
	req.NotEmpty(signupToken)

	// When they log in
	loginToken, err := svc.Login("ada@example.com", "correct-horse")
	req.NoError(err)

	// Then the token verifies and carries their identity
	claims, err := svc.Verify(loginToken)
	req.NoError(err)
	req.Equal("ada@example.com", claims.Email)
	req.NotEmpty(claims.Subject)

	user, err := svc.User(claims)
	req.NoError(err)
	req.Equal(domain.UserID(claims.Subject), user.ID)
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t)

	_, err := svc.Signup("ada@example.com", "correct-horse")
	req.NoError(err)

	_, err = svc.Signup("ada@example.com", "another-pass")
	req.ErrorIs(err, ErrUserExists)
}

func TestService_Signup_RejectsWeakInput(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t)

	_, err := svc.Signup("", "correct-horse")
	req.ErrorIs(err, domain.ErrEmailEmpty)

	_, err = svc.Signup("ada@example.com", "short")
	req.ErrorIs(err, domain.ErrPasswordTooShort)
}

func TestService_Login_WrongPassword(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t)

	_, err := svc.Signup("ada@example.com", "correct-horse")
	req.NoError(err)

	_, err = svc.Login("ada@example.com", "wrong-horse")
	req.ErrorIs(err, ErrInvalidCredentials)

	// Unknown email reads the same as a wrong password
	_, err = svc.Login("nobody@example.com", "whatever")
	req.ErrorIs(err, ErrInvalidCredentials)
}

func TestService_Verify_RejectsTampering(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t)

	token, err := svc.Signup("ada@example.com", "correct-horse")
	req.NoError(err)

	_, err = svc.Verify(token + "x")
	req.ErrorIs(err, ErrInvalidToken)

	other := NewService(nil, "different-secret", time.Hour)
	_, err = other.Verify(token)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestService_Verify_RejectsExpired(t *testing.T) {
	req := require.New(t)
	store, err := OpenStore("")
	req.NoError(err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, "test-secret", -time.Minute)
	token, err := svc.Signup("ada@example.com", "correct-horse")
	req.NoError(err)

	_, err = svc.Verify(token)
	req.ErrorIs(err, ErrInvalidToken)
}
