package logout

import (
	"log/slog"
	"net/http"

	resp "backpack/internal/lib/api/response"
	"backpack/internal/session"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

// Sessions are stateless, so logout only expires the cookie.
func New(log *slog.Logger, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sessions.ClearCookie(w)

		log.Info("logout successful")

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}
