package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"backpack/internal/courses"
	resp "backpack/internal/lib/api/response"
	sl "backpack/internal/lib/logger"
	"backpack/internal/middleware/authn"
	"backpack/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ListResponse struct {
	resp.Response
	Courses []models.Course `json:"courses"`
}

// List returns the caller's saved courses.
func List(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.List"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := catalog.Dashboard(ctx, identity.AccountID)
		if err != nil {
			log.Error("failed to list dashboard", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Courses:  list,
		})
	}
}

// Save pins an approved course to the caller's dashboard. Saving the same
// course twice is a no-op.
func Save(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.Save"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := catalog.SaveToDashboard(ctx, identity.AccountID, chi.URLParam(r, "courseID"))
		if err != nil {
			if errors.Is(err, courses.ErrCourseNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Course not found"))

				return
			}
			if errors.Is(err, courses.ErrCourseNotApproved) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Course is not approved"))

				return
			}

			log.Error("failed to save course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}

func Remove(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.Remove"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := catalog.RemoveFromDashboard(ctx, identity.AccountID, chi.URLParam(r, "courseID")); err != nil {
			log.Error("failed to remove course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}
