package courses

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"backpack/internal/models"
	"backpack/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, *memory.Repo) {
	t.Helper()

	repo := memory.New()

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, repo), repo
}

var (
	alice = models.Account{ID: 1, Email: "alice@example.com"}
	admin = models.Account{ID: 2, Email: "admin@example.com", IsAdmin: true}
)

func TestSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("user submission lands pending and stays out of the catalog", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{
			Title:  "Intro to Go",
			Author: "Rob",
			Link:   "https://example.com/go",
		})
		require.NoError(t, err)
		require.Equal(t, models.CourseStatusPending, course.Status)
		require.NotEmpty(t, course.ID)

		listed, err := catalog.Browse(ctx, Filter{})
		require.NoError(t, err)
		require.Empty(t, listed)

		pending, err := catalog.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
	})

	t.Run("admin submission is approved immediately", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, admin, models.Course{
			Title:  "Intro to Go",
			Author: "Rob",
			Link:   "https://example.com/go",
		})
		require.NoError(t, err)
		require.Equal(t, models.CourseStatusApproved, course.Status)

		listed, err := catalog.Browse(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, listed, 1)
	})

	t.Run("defaults are filled in", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{
			Title:  "Untitled",
			Author: "Someone",
			Link:   "https://example.com",
		})
		require.NoError(t, err)
		require.Equal(t, "YouTube", course.Platform)
		require.Equal(t, "Beginner", course.Level)
	})
}

func TestReview(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("approval publishes the course", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.NoError(t, catalog.Review(ctx, course.ID, true, ""))

		listed, err := catalog.Browse(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, listed, 1)
	})

	t.Run("rejection records feedback", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.NoError(t, catalog.Review(ctx, course.ID, false, "broken link"))

		got, err := catalog.Course(ctx, course.ID)
		require.NoError(t, err)
		require.Equal(t, models.CourseStatusRejected, got.Status)
		require.Equal(t, "broken link", got.Feedback)
	})

	t.Run("cannot review twice", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.NoError(t, catalog.Review(ctx, course.ID, true, ""))
		require.ErrorIs(t, catalog.Review(ctx, course.ID, false, ""), ErrAlreadyReviewed)
	})

	t.Run("unknown course", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		require.ErrorIs(t, catalog.Review(ctx, "missing", true, ""), ErrCourseNotFound)
	})
}

func TestBrowse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	seed := func(t *testing.T, catalog *Catalog) {
		t.Helper()

		for _, c := range []models.Course{
			{Title: "Memory Mastery", Author: "Dr. Rama Mehta", Platform: "Udemy", Level: "Beginner",
				Topics: []string{"memory", "confidence"}, Rating: 4.5, Learners: 1000},
			{Title: "Advanced Go Concurrency", Author: "Katherine", Platform: "YouTube", Level: "Advanced",
				Topics: []string{"go", "concurrency"}, Rating: 4.9, Learners: 250},
			{Title: "Go for Beginners", Author: "Jon", Platform: "Udemy", Level: "Beginner",
				Topics: []string{"go"}, Rating: 4.2, Learners: 5000},
		} {
			_, err := catalog.Submit(ctx, admin, c)
			require.NoError(t, err)
		}
	}

	t.Run("free-text query matches title author description and topics", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)
		seed(t, catalog)

		found, err := catalog.Browse(ctx, Filter{Query: "go"})
		require.NoError(t, err)
		require.Len(t, found, 2)

		found, err = catalog.Browse(ctx, Filter{Query: "mehta"})
		require.NoError(t, err)
		require.Len(t, found, 1)

		found, err = catalog.Browse(ctx, Filter{Query: "confidence"})
		require.NoError(t, err)
		require.Len(t, found, 1)
	})

	t.Run("level platform and topic filters", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)
		seed(t, catalog)

		found, err := catalog.Browse(ctx, Filter{Level: "beginner"})
		require.NoError(t, err)
		require.Len(t, found, 2)

		found, err = catalog.Browse(ctx, Filter{Platform: "udemy"})
		require.NoError(t, err)
		require.Len(t, found, 2)

		found, err = catalog.Browse(ctx, Filter{Topic: "concurrency"})
		require.NoError(t, err)
		require.Len(t, found, 1)

		found, err = catalog.Browse(ctx, Filter{Platform: "Udemy", Topic: "go"})
		require.NoError(t, err)
		require.Len(t, found, 1)
	})

	t.Run("sort orders", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)
		seed(t, catalog)

		byRating, err := catalog.Browse(ctx, Filter{Sort: SortByRating})
		require.NoError(t, err)
		require.Equal(t, "Advanced Go Concurrency", byRating[0].Title)

		byLearners, err := catalog.Browse(ctx, Filter{Sort: SortByLearners})
		require.NoError(t, err)
		require.Equal(t, "Go for Beginners", byLearners[0].Title)
	})

	t.Run("newest first", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		base := time.Now()
		for i, title := range []string{"old", "newer", "newest"} {
			offset := time.Duration(i) * time.Hour
			catalog.now = func() time.Time { return base.Add(offset) }

			_, err := catalog.Submit(ctx, admin, models.Course{Title: title, Author: "a", Link: "https://x"})
			require.NoError(t, err)
		}

		found, err := catalog.Browse(ctx, Filter{Sort: SortByNewest})
		require.NoError(t, err)
		require.Equal(t, "newest", found[0].Title)
		require.Equal(t, "old", found[2].Title)
	})
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("save list remove", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, admin, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.NoError(t, catalog.SaveToDashboard(ctx, alice.ID, course.ID))

		saved, err := catalog.Dashboard(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, saved, 1)

		require.NoError(t, catalog.RemoveFromDashboard(ctx, alice.ID, course.ID))

		saved, err = catalog.Dashboard(ctx, alice.ID)
		require.NoError(t, err)
		require.Empty(t, saved)
	})

	t.Run("saving twice is a no-op", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, admin, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.NoError(t, catalog.SaveToDashboard(ctx, alice.ID, course.ID))
		require.NoError(t, catalog.SaveToDashboard(ctx, alice.ID, course.ID))

		saved, err := catalog.Dashboard(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, saved, 1)
	})

	t.Run("pending courses cannot be saved", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		course, err := catalog.Submit(ctx, alice, models.Course{Title: "Go", Author: "Rob", Link: "https://x"})
		require.NoError(t, err)

		require.ErrorIs(t, catalog.SaveToDashboard(ctx, alice.ID, course.ID), ErrCourseNotApproved)
	})

	t.Run("unknown course cannot be saved", func(t *testing.T) {
		catalog, _ := newTestCatalog(t)

		require.ErrorIs(t, catalog.SaveToDashboard(ctx, alice.ID, "missing"), ErrCourseNotFound)
	})
}
