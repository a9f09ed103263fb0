package catalog

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
)

type ListResponse struct {
	resp.Response
	Courses []models.Course `json:"courses"`
}

type GetResponse struct {
	resp.Response
	Course models.Course `json:"course"`
}

// List serves the public catalog with query/level/platform/topic filters and
// a sort order (rating, learners, newest).
func List(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.catalog.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		filter := courses.Filter{
			Query:    r.URL.Query().Get("q"),
			Level:    r.URL.Query().Get("level"),
			Platform: r.URL.Query().Get("platform"),
			Topic:    r.URL.Query().Get("topic"),
			Sort:     r.URL.Query().Get("sort"),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := catalog.Browse(ctx, filter)
		if err != nil {
			log.Error("failed to list courses", sl.Err(err))

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

func Get(log *slog.Logger, catalog *courses.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.catalog.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		course, err := catalog.Course(ctx, chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, courses.ErrCourseNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Course not found"))

				return
			}

			log.Error("failed to get course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, GetResponse{
			Response: resp.OK(),
			Course:   course,
		})
	}
}
