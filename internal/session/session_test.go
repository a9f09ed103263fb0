package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backpack/internal/models"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := New("secret", 24*time.Hour, false)

	acc := models.Account{
		ID:      42,
		Email:   "a@example.com",
		IsAdmin: true,
	}

	token, err := m.NewToken(acc)
	require.NoError(t, err)

	identity, err := m.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), identity.AccountID)
	require.Equal(t, "a@example.com", identity.Email)
	require.True(t, identity.IsAdmin)
}

func TestParseToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects tampered token", func(t *testing.T) {
		m := New("secret", 24*time.Hour, false)

		token, err := m.NewToken(models.Account{ID: 1, Email: "a@example.com"})
		require.NoError(t, err)

		_, err = m.ParseToken(token + "x")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		minter := New("secret-one", 24*time.Hour, false)
		verifier := New("secret-two", 24*time.Hour, false)

		token, err := minter.NewToken(models.Account{ID: 1, Email: "a@example.com"})
		require.NoError(t, err)

		_, err = verifier.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		m := New("secret", -time.Hour, false)

		token, err := m.NewToken(models.Account{ID: 1, Email: "a@example.com"})
		require.NoError(t, err)

		_, err = m.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestCookie(t *testing.T) {
	t.Parallel()

	m := New("secret", 24*time.Hour, false)

	token, err := m.NewToken(models.Account{ID: 7, Email: "a@example.com"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	require.Equal(t, CookieName, c.Name)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 86400, c.MaxAge)
	require.False(t, c.Secure)

	// round trip through a request
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(c)

	identity, err := m.FromRequest(req)
	require.NoError(t, err)
	require.Equal(t, int64(7), identity.AccountID)

	// clearing expires it
	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestSecureCookieInProd(t *testing.T) {
	t.Parallel()

	m := New("secret", 24*time.Hour, true)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, "token")

	require.True(t, rec.Result().Cookies()[0].Secure)
}
