package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testTokens() TokenService {
	return NewTokenService(config.AuthConfig{JWTSecret: "test-secret", Issuer: "food-budget", TokenTTL: time.Hour})
}

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := store.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })
	return NewService(db, testTokens()).WithHashCost(bcrypt.MinCost)
}

func TestTokenRoundTrip(t *testing.T) {
	ts := testTokens()
	token, exp, err := ts.Sign(42, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	ts := testTokens()
	token, _, err := ts.Sign(1, "alice")
	require.NoError(t, err)

	other := ts
	other.Secret = []byte("other-secret")
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongIssuer := ts
	wrongIssuer.Issuer = "someone-else"
	_, err = wrongIssuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired := ts
	expired.Duration = -time.Minute
	old, _, err := expired.Sign(1, "alice")
	require.NoError(t, err)
	_, err = ts.Parse(old)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.Parse(none)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, err := svc.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@Example.com", Password: "correct horse", Confirmation: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEqual(t, "correct horse", sess.User.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	login, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	claims, err := svc.Tokens().Parse(login.Token)
	require.NoError(t, err)

	u, err := svc.CurrentUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong password"})
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	_, err = svc.Login(ctx, LoginInput{Username: "bob", Password: "whatever1"})
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	_, err = svc.Login(ctx, LoginInput{Username: "alice"})
	assert.True(t, common.IsValidationError(err))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password1", Confirmation: "password1"})
	require.NoError(t, err)

	cases := map[string]RegisterInput{
		"missing field":     {Username: "bob", Email: "bob@example.com", Password: "password1"},
		"short username":    {Username: "bo", Email: "bob@example.com", Password: "password1", Confirmation: "password1"},
		"bad email":         {Username: "bob", Email: "bob.example.com", Password: "password1", Confirmation: "password1"},
		"short password":    {Username: "bob", Email: "bob@example.com", Password: "short", Confirmation: "short"},
		"confirmation typo": {Username: "bob", Email: "bob@example.com", Password: "password1", Confirmation: "password2"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, in)
			assert.True(t, common.IsValidationError(err), name)
		})
	}

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "password1", Confirmation: "password1"})
	assert.True(t, errors.Is(err, common.ErrConflict))
	_, err = svc.Register(ctx, RegisterInput{Username: "carol", Email: "ALICE@example.com", Password: "password1", Confirmation: "password1"})
	assert.True(t, errors.Is(err, common.ErrConflict))
}
