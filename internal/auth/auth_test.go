package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"backpack/internal/models"
	"backpack/internal/session"
	"backpack/internal/storage/memory"
	"backpack/internal/verification"

	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (f *fakePublisher) SendMessage(ctx context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) lastCode(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.msgs)
	return f.msgs[len(f.msgs)-1].Code
}

func newTestAuth(t *testing.T) (*Auth, *session.Manager, *fakePublisher) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	pub := &fakePublisher{}

	challenges := verification.New(log, repo, pub, 15*time.Minute, 5)
	sessions := session.New("test-secret", 24*time.Hour, false)

	return New(log, repo, repo, challenges, sessions), sessions, pub
}

func TestSignup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("duplicate email is rejected, first account unaffected", func(t *testing.T) {
		a, sessions, pub := newTestAuth(t)

		challengeID, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		_, err = a.Signup(ctx, "a@example.com", "Imposter", "password-two")
		require.ErrorIs(t, err, ErrAccountExists)

		// the original signup still completes
		require.NoError(t, a.VerifyEmail(ctx, challengeID, pub.lastCode(t)))

		token, acc, err := a.Login(ctx, "a@example.com", "password-one")
		require.NoError(t, err)
		require.Equal(t, "Alice", acc.DisplayName)

		identity, err := sessions.ParseToken(token)
		require.NoError(t, err)
		require.Equal(t, acc.ID, identity.AccountID)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unverified account gets a distinct error", func(t *testing.T) {
		a, _, _ := newTestAuth(t)

		_, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		_, _, err = a.Login(ctx, "a@example.com", "password-one")
		require.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		a, _, pub := newTestAuth(t)

		challengeID, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)
		require.NoError(t, a.VerifyEmail(ctx, challengeID, pub.lastCode(t)))

		_, _, err = a.Login(ctx, "a@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = a.Login(ctx, "nobody@example.com", "password-one")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestResendVerification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reissue replaces the original challenge", func(t *testing.T) {
		a, _, pub := newTestAuth(t)

		first, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)
		firstCode := pub.lastCode(t)

		second, err := a.ResendVerification(ctx, "a@example.com")
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		err = a.VerifyEmail(ctx, first, firstCode)
		require.ErrorIs(t, err, verification.ErrChallengeNotFound)

		require.NoError(t, a.VerifyEmail(ctx, second, pub.lastCode(t)))
	})

	t.Run("verified account is a no-op", func(t *testing.T) {
		a, _, pub := newTestAuth(t)

		challengeID, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)
		require.NoError(t, a.VerifyEmail(ctx, challengeID, pub.lastCode(t)))

		id, err := a.ResendVerification(ctx, "a@example.com")
		require.NoError(t, err)
		require.Empty(t, id)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("full reset flow", func(t *testing.T) {
		a, _, pub := newTestAuth(t)

		challengeID, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)
		require.NoError(t, a.VerifyEmail(ctx, challengeID, pub.lastCode(t)))

		resetID, err := a.RequestPasswordReset(ctx, "a@example.com")
		require.NoError(t, err)

		require.NoError(t, a.ResetPassword(ctx, resetID, pub.lastCode(t), "password-two"))

		_, _, err = a.Login(ctx, "a@example.com", "password-one")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = a.Login(ctx, "a@example.com", "password-two")
		require.NoError(t, err)
	})

	t.Run("signup challenge cannot reset a password", func(t *testing.T) {
		a, _, pub := newTestAuth(t)

		challengeID, err := a.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		err = a.ResetPassword(ctx, challengeID, pub.lastCode(t), "password-two")
		require.ErrorIs(t, err, verification.ErrChallengeNotFound)

		// and the signup challenge is still redeemable for its own purpose
		require.NoError(t, a.VerifyEmail(ctx, challengeID, pub.lastCode(t)))
	})

	t.Run("unknown email surfaces account-not-found for the handler to mask", func(t *testing.T) {
		a, _, _ := newTestAuth(t)

		_, err := a.RequestPasswordReset(ctx, "nobody@example.com")
		require.Error(t, err)
		require.False(t, errors.Is(err, ErrInvalidCredentials))
	})
}
