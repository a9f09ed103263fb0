package submit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"backpack/internal/courses"
	resp "backpack/internal/lib/api/response"
	sl "backpack/internal/lib/logger"
	"backpack/internal/middleware/authn"
	"backpack/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Platform    string   `json:"platform"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Link        string   `json:"link" validate:"required,url"`
	Duration    string   `json:"duration"`
	Level       string   `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Topics      []string `json:"topics"`
}

type Response struct {
	resp.Response
	Course models.Course `json:"course"`
}

type AccountProvider interface {
	AccountByID(ctx context.Context, id int64) (models.Account, error)
}

// New accepts a course submission from an authenticated user. Non-admin
// submissions land in the pending review queue.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	catalog *courses.Catalog,
	accounts AccountProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.submit.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authn.Identity(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

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

		submitter, err := accounts.AccountByID(ctx, identity.AccountID)
		if err != nil {
			log.Error("failed to load submitter", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		course, err := catalog.Submit(ctx, submitter, models.Course{
			Title:       req.Title,
			Author:      req.Author,
			Platform:    req.Platform,
			Description: req.Description,
			Image:       req.Image,
			Link:        req.Link,
			Duration:    req.Duration,
			Level:       req.Level,
			Topics:      req.Topics,
		})
		if err != nil {
			log.Error("failed to submit course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Course:   course,
		})
	}
}
