package courses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	sl "backpack/internal/lib/logger"
	"backpack/internal/models"
	"backpack/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrCourseNotApproved = errors.New("course is not approved")
	ErrAlreadyReviewed   = errors.New("course already reviewed")
)

const (
	SortByRating   = "rating"
	SortByLearners = "learners"
	SortByNewest   = "newest"
)

// Filter narrows the public catalog listing. Zero values mean "no filter".
type Filter struct {
	Query    string
	Level    string
	Platform string
	Topic    string
	Sort     string
}

type CourseSaver interface {
	SaveCourse(ctx context.Context, c models.Course) error
	UpdateCourseStatus(ctx context.Context, courseID, status, feedback string) error
	SaveToDashboard(ctx context.Context, accountID int64, courseID string) error
	RemoveFromDashboard(ctx context.Context, accountID int64, courseID string) error
}

type CourseProvider interface {
	Course(ctx context.Context, courseID string) (models.Course, error)
	CoursesByStatus(ctx context.Context, status string) ([]models.Course, error)
	DashboardCourses(ctx context.Context, accountID int64) ([]models.Course, error)
}

type Catalog struct {
	log      *slog.Logger
	saver    CourseSaver
	provider CourseProvider

	now func() time.Time
}

func New(log *slog.Logger, saver CourseSaver, provider CourseProvider) *Catalog {
	return &Catalog{
		log:      log,
		saver:    saver,
		provider: provider,
		now:      time.Now,
	}
}

// Browse returns approved courses matching the filter.
func (c *Catalog) Browse(ctx context.Context, f Filter) ([]models.Course, error) {
	const op = "courses.Browse"

	all, err := c.provider.CoursesByStatus(ctx, models.CourseStatusApproved)
	if err != nil {
		c.log.Error("failed to list courses", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	matched := make([]models.Course, 0, len(all))
	for _, course := range all {
		if matches(course, f) {
			matched = append(matched, course)
		}
	}

	sortCourses(matched, f.Sort)

	return matched, nil
}

func (c *Catalog) Course(ctx context.Context, courseID string) (models.Course, error) {
	const op = "courses.Course"

	course, err := c.provider.Course(ctx, courseID)
	if err != nil {
		if errors.Is(err, storage.ErrCourseNotFound) {
			return models.Course{}, ErrCourseNotFound
		}

		return models.Course{}, fmt.Errorf("%s: %w", op, err)
	}

	return course, nil
}

// Submit stores a new course. Regular users submit for review (pending),
// admin submissions are approved straight away.
func (c *Catalog) Submit(ctx context.Context, submitter models.Account, course models.Course) (models.Course, error) {
	const op = "courses.Submit"

	log := c.log.With(slog.String("op", op))

	course.ID = uuid.NewString()
	course.CreatedBy = submitter.ID
	course.CreatedAt = c.now()
	course.Feedback = ""

	course.Status = models.CourseStatusPending
	if submitter.IsAdmin {
		course.Status = models.CourseStatusApproved
	}

	if course.Platform == "" {
		course.Platform = "YouTube"
	}
	if course.Level == "" {
		course.Level = "Beginner"
	}

	if err := c.saver.SaveCourse(ctx, course); err != nil {
		log.Error("failed to save course", sl.Err(err))
		return models.Course{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("course submitted",
		slog.String("course_id", course.ID),
		slog.String("status", course.Status),
	)

	return course, nil
}

// Pending returns the admin review queue.
func (c *Catalog) Pending(ctx context.Context) ([]models.Course, error) {
	const op = "courses.Pending"

	pending, err := c.provider.CoursesByStatus(ctx, models.CourseStatusPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pending, nil
}

// Review approves or rejects a pending course.
func (c *Catalog) Review(ctx context.Context, courseID string, approve bool, feedback string) error {
	const op = "courses.Review"

	log := c.log.With(slog.String("op", op))

	course, err := c.provider.Course(ctx, courseID)
	if err != nil {
		if errors.Is(err, storage.ErrCourseNotFound) {
			return ErrCourseNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if course.Status != models.CourseStatusPending {
		return ErrAlreadyReviewed
	}

	status := models.CourseStatusRejected
	if approve {
		status = models.CourseStatusApproved
	}

	if err := c.saver.UpdateCourseStatus(ctx, courseID, status, feedback); err != nil {
		log.Error("failed to update course status", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("course reviewed", slog.String("course_id", courseID), slog.String("status", status))

	return nil
}

// SaveToDashboard pins an approved course to the account's dashboard.
// Saving a course that is already pinned is a no-op.
func (c *Catalog) SaveToDashboard(ctx context.Context, accountID int64, courseID string) error {
	const op = "courses.SaveToDashboard"

	course, err := c.provider.Course(ctx, courseID)
	if err != nil {
		if errors.Is(err, storage.ErrCourseNotFound) {
			return ErrCourseNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if course.Status != models.CourseStatusApproved {
		return ErrCourseNotApproved
	}

	if err := c.saver.SaveToDashboard(ctx, accountID, courseID); err != nil {
		if errors.Is(err, storage.ErrAlreadyOnDashboard) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Catalog) RemoveFromDashboard(ctx context.Context, accountID int64, courseID string) error {
	const op = "courses.RemoveFromDashboard"

	if err := c.saver.RemoveFromDashboard(ctx, accountID, courseID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Catalog) Dashboard(ctx context.Context, accountID int64) ([]models.Course, error) {
	const op = "courses.Dashboard"

	saved, err := c.provider.DashboardCourses(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func matches(course models.Course, f Filter) bool {
	if f.Level != "" && !strings.EqualFold(course.Level, f.Level) {
		return false
	}

	if f.Platform != "" && !strings.EqualFold(course.Platform, f.Platform) {
		return false
	}

	if f.Topic != "" {
		found := false
		for _, topic := range course.Topics {
			if strings.EqualFold(topic, f.Topic) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Query != "" {
		q := strings.ToLower(f.Query)
		haystack := strings.ToLower(
			course.Title + " " + course.Author + " " + course.Description + " " + strings.Join(course.Topics, " "),
		)
		if !strings.Contains(haystack, q) {
			return false
		}
	}

	return true
}

func sortCourses(list []models.Course, by string) {
	switch by {
	case SortByLearners:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Learners > list[j].Learners
		})
	case SortByNewest:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Rating > list[j].Rating
		})
	}
}
