package review

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"backpack/internal/courses"
	resp "backpack/internal/lib/api/response"
	sl "backpack/internal/lib/logger"
	"backpack/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Feedback string `json:"feedback"`
}

type PendingResponse struct {
	resp.Response
	Courses []models.Course `json:"courses"`
}

// Pending lists the admin review queue.
func Pending(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.review.Pending"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := catalog.Pending(ctx)
		if err != nil {
			log.Error("failed to list pending courses", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, PendingResponse{
			Response: resp.OK(),
			Courses:  list,
		})
	}
}

// Decide approves or rejects a pending course.
func Decide(
	log *slog.Logger,
	validate *validator.Validate,
	catalog *courses.Catalog,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.review.Decide"

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

		err = catalog.Review(ctx, chi.URLParam(r, "id"), req.Decision == "approve", req.Feedback)
		if err != nil {
			if errors.Is(err, courses.ErrCourseNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Course not found"))

				return
			}
			if errors.Is(err, courses.ErrAlreadyReviewed) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Course already reviewed"))

				return
			}

			log.Error("failed to review course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}
