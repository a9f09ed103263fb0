package whoami

import (
	"log/slog"
	"net/http"

	resp "backpack/internal/lib/api/response"
	"backpack/internal/session"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type User struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type Response struct {
	resp.Response
	User User `json:"user"`
}

// New validates the session cookie and echoes the embedded identity.
func New(log *slog.Logger, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.whoami.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, err := sessions.FromRequest(r)
		if err != nil {
			log.Info("no valid session")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Invalid session"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User: User{
				ID:      identity.AccountID,
				Email:   identity.Email,
				IsAdmin: identity.IsAdmin,
			},
		})
	}
}
