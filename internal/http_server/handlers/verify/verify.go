package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"backpack/internal/auth"
	resp "backpack/internal/lib/api/response"
	sl "backpack/internal/lib/logger"
	"backpack/internal/verification"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

type Response struct {
	resp.Response
	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`
}

// unknown, expired and exhausted challenges all get the same caller-facing message
const genericRejection = "invalid or expired code"

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

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

		err = authService.VerifyEmail(ctx, req.ChallengeID, req.Code)
		if err != nil {
			var mismatch *verification.CodeMismatchError
			if errors.As(err, &mismatch) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, Response{
					Response:          resp.Error("invalid code"),
					AttemptsRemaining: &mismatch.AttemptsRemaining,
				})

				return
			}

			if errors.Is(err, verification.ErrChallengeExhausted) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error(genericRejection))

				return
			}

			if errors.Is(err, verification.ErrChallengeNotFound) ||
				errors.Is(err, verification.ErrChallengeExpired) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(genericRejection))

				return
			}

			log.Error("failed to verify email", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("email verified successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
