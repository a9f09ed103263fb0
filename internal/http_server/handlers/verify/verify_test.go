package verify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backpack/internal/auth"
	"backpack/internal/http_server/handlers/verify"
	"backpack/internal/models"
	"backpack/internal/session"
	"backpack/internal/storage/memory"
	"backpack/internal/verification"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	code string
}

func (c *capturingPublisher) SendMessage(ctx context.Context, msg models.Message) error {
	c.code = msg.Code
	return nil
}

func setup(t *testing.T) (http.HandlerFunc, *auth.Auth, *capturingPublisher) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	pub := &capturingPublisher{}

	challenges := verification.New(log, repo, pub, 15*time.Minute, 5)
	sessions := session.New("test-secret", 24*time.Hour, false)
	authService := auth.New(log, repo, repo, challenges, sessions)

	return verify.New(log, validator.New(), authService), authService, pub
}

func post(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	return rec
}

func TestVerifyHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("happy path then replay", func(t *testing.T) {
		handler, authService, pub := setup(t)

		challengeID, err := authService.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		body := fmt.Sprintf(`{"challenge_id": %q, "code": %q}`, challengeID, pub.code)

		rec := post(t, handler, body)
		require.Equal(t, http.StatusOK, rec.Code)

		// the replay gets the generic rejection, not a success
		rec = post(t, handler, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var got struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, "invalid or expired code", got.Error)
	})

	t.Run("wrong code reports attempts remaining", func(t *testing.T) {
		handler, authService, pub := setup(t)

		challengeID, err := authService.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		wrong := "000000"
		if wrong == pub.code {
			wrong = "000001"
		}

		rec := post(t, handler, fmt.Sprintf(`{"challenge_id": %q, "code": %q}`, challengeID, wrong))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var got struct {
			Error             string `json:"error"`
			AttemptsRemaining *int   `json:"attempts_remaining"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, "invalid code", got.Error)
		require.NotNil(t, got.AttemptsRemaining)
		require.Equal(t, 4, *got.AttemptsRemaining)
	})

	t.Run("exhausted challenge returns 429", func(t *testing.T) {
		handler, authService, pub := setup(t)

		challengeID, err := authService.Signup(ctx, "a@example.com", "Alice", "password-one")
		require.NoError(t, err)

		wrong := "000000"
		if wrong == pub.code {
			wrong = "000001"
		}

		for i := 0; i < 5; i++ {
			rec := post(t, handler, fmt.Sprintf(`{"challenge_id": %q, "code": %q}`, challengeID, wrong))
			require.Equal(t, http.StatusBadRequest, rec.Code)
		}

		rec := post(t, handler, fmt.Sprintf(`{"challenge_id": %q, "code": %q}`, challengeID, pub.code))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("unknown challenge id", func(t *testing.T) {
		handler, _, _ := setup(t)

		rec := post(t, handler, `{"challenge_id": "deadbeefdeadbeefdeadbeefdeadbeef", "code": "123456"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failures", func(t *testing.T) {
		handler, _, _ := setup(t)

		rec := post(t, handler, `{"code": "123456"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = post(t, handler, `{"challenge_id": "abc", "code": "12345"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = post(t, handler, `{"challenge_id": "abc", "code": "12345x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
