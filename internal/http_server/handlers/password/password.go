package password

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
	"backpack/internal/verification"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotResponse struct {
	resp.Response
	ChallengeID string `json:"challenge_id,omitempty"`
}

type ResetRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type ResetResponse struct {
	resp.Response
	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`
}

// Forgot issues a password_reset challenge. Unknown emails still get a 200 to
// avoid enumeration.
func Forgot(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.password.Forgot"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ForgotRequest

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

		challengeID, err := authService.RequestPasswordReset(ctx, req.Email)
		if err != nil {
			if errors.Is(err, storage.ErrAccountNotFound) {
				log.Info("reset requested for unknown email")

				render.JSON(w, r, ForgotResponse{Response: resp.OK()})

				return
			}

			log.Error("failed to issue reset challenge", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ForgotResponse{
			Response:    resp.OK(),
			ChallengeID: challengeID,
		})
	}
}

// Reset redeems a password_reset challenge and replaces the password.
func Reset(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.password.Reset"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ResetRequest

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

		err = authService.ResetPassword(ctx, req.ChallengeID, req.Code, req.NewPassword)
		if err != nil {
			var mismatch *verification.CodeMismatchError
			if errors.As(err, &mismatch) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, ResetResponse{
					Response:          resp.Error("invalid code"),
					AttemptsRemaining: &mismatch.AttemptsRemaining,
				})

				return
			}

			if errors.Is(err, verification.ErrChallengeExhausted) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error("invalid or expired code"))

				return
			}

			if errors.Is(err, verification.ErrChallengeNotFound) ||
				errors.Is(err, verification.ErrChallengeExpired) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired code"))

				return
			}

			log.Error("failed to reset password", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("password reset successfully")

		render.JSON(w, r, ResetResponse{
			Response: resp.OK(),
		})
	}
}
