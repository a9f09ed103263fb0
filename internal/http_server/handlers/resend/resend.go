package resend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"backpack/internal/auth"
	resp "backpack/internal/lib/api/response"
	sl "backpack/internal/lib/logger"
	"backpack/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
	ChallengeID string `json:"challenge_id,omitempty"`
}

// New reissues the signup verification code. The endpoint answers 200 even
// for unknown or already-verified emails so it cannot be used to enumerate
// accounts.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resend.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		challengeID, err := authService.ResendVerification(ctx, req.Email)
		if err != nil {
			if errors.Is(err, storage.ErrAccountNotFound) {
				log.Info("resend requested for unknown email")

				render.JSON(w, r, Response{Response: resp.OK()})

				return
			}

			log.Error("failed to resend verification", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			ChallengeID: challengeID,
		})
	}
}
