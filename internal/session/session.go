package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"backpack/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "session"

var ErrInvalidToken = errors.New("invalid session token")

// Identity is the payload embedded in a session token. Sessions are
// stateless: validity is cryptographically self-contained, nothing is kept
// server-side.
type Identity struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

func New(secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

func (m *Manager) NewToken(acc models.Account) (string, error) {
	const op = "session.NewToken"

	claims := jwt.MapClaims{
		"sub":      acc.ID,
		"email":    acc.Email,
		"is_admin": acc.IsAdmin,
		"exp":      time.Now().Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (m *Manager) ParseToken(tokenStr string) (Identity, error) {
	const op = "session.ParseToken"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return m.secret, nil
	})
	if err != nil || !parsedToken.Valid {
		return Identity{}, ErrInvalidToken
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	email, ok := claims["email"].(string)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	isAdmin, _ := claims["is_admin"].(bool)

	return Identity{
		AccountID: int64(sub),
		Email:     email,
		IsAdmin:   isAdmin,
	}, nil
}

// SetCookie writes the session cookie: HTTP-only, SameSite=Lax, Secure in
// prod, Max-Age matching the token expiry.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts and validates the session cookie.
func (m *Manager) FromRequest(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	return m.ParseToken(cookie.Value)
}
