package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backpack/internal/config"
	"backpack/internal/models"
	"backpack/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveAccount(ctx context.Context, email, displayName string, passHash []byte) (int64, error) {
	const op = "storage.postgres.SaveAccount"

	query := `
		INSERT INTO accounts (email, display_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, displayName, string(passHash)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrAccountExists
		}

		return 0, fmt.Errorf("%s: failed to save account: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Account(ctx context.Context, email string) (models.Account, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_verified, is_admin, created_at
		FROM accounts
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PassHash,
		&a.IsVerified,
		&a.IsAdmin,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, err
	}

	return a, err
}

func (r *PostgresRepo) AccountByID(ctx context.Context, id int64) (models.Account, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_verified, is_admin, created_at
		FROM accounts
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PassHash,
		&a.IsVerified,
		&a.IsAdmin,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return a, err
}

func (r *PostgresRepo) SetEmailVerified(ctx context.Context, accountID int64) error {
	query := `UPDATE accounts SET is_verified = TRUE WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, accountID)

	return err
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, accountID int64, passHash []byte) error {
	query := `UPDATE accounts SET password_hash = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, string(passHash), accountID)

	return err
}

func (r *PostgresRepo) SaveCourse(ctx context.Context, c models.Course) error {
	const op = "storage.postgres.SaveCourse"

	query := `
		INSERT INTO courses
			(id, title, author, platform, description, image, link, duration,
			 level, topics, rating, learners, status, feedback, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Author, c.Platform, c.Description, c.Image, c.Link,
		c.Duration, c.Level, c.Topics, c.Rating, c.Learners, c.Status,
		c.Feedback, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to save course: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpdateCourseStatus(ctx context.Context, courseID, status, feedback string) error {
	query := `UPDATE courses SET status = $1, feedback = $2 WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, status, feedback, courseID)

	return err
}

func (r *PostgresRepo) Course(ctx context.Context, courseID string) (models.Course, error) {
	query := `
		SELECT id, title, author, platform, description, image, link, duration,
		       level, topics, rating, learners, status, feedback, created_by, created_at
		FROM courses
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, courseID)

	c, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Course{}, storage.ErrCourseNotFound
	}

	return c, err
}

func (r *PostgresRepo) CoursesByStatus(ctx context.Context, status string) ([]models.Course, error) {
	const op = "storage.postgres.CoursesByStatus"

	query := `
		SELECT id, title, author, platform, description, image, link, duration,
		       level, topics, rating, learners, status, feedback, created_by, created_at
		FROM courses
		WHERE status = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectCourses(rows)
}

func (r *PostgresRepo) SaveToDashboard(ctx context.Context, accountID int64, courseID string) error {
	const op = "storage.postgres.SaveToDashboard"

	query := `
		INSERT INTO dashboard_courses (account_id, course_id)
		VALUES ($1, $2)
	`

	_, err := r.pool.Exec(ctx, query, accountID, courseID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrAlreadyOnDashboard
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RemoveFromDashboard(ctx context.Context, accountID int64, courseID string) error {
	query := `DELETE FROM dashboard_courses WHERE account_id = $1 AND course_id = $2`

	_, err := r.pool.Exec(ctx, query, accountID, courseID)

	return err
}

func (r *PostgresRepo) DashboardCourses(ctx context.Context, accountID int64) ([]models.Course, error) {
	const op = "storage.postgres.DashboardCourses"

	query := `
		SELECT c.id, c.title, c.author, c.platform, c.description, c.image, c.link,
		       c.duration, c.level, c.topics, c.rating, c.learners, c.status,
		       c.feedback, c.created_by, c.created_at
		FROM courses c
		JOIN dashboard_courses d ON d.course_id = c.id
		WHERE d.account_id = $1
		ORDER BY d.saved_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectCourses(rows)
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanCourse(row pgx.Row) (models.Course, error) {
	var c models.Course

	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Author,
		&c.Platform,
		&c.Description,
		&c.Image,
		&c.Link,
		&c.Duration,
		&c.Level,
		&c.Topics,
		&c.Rating,
		&c.Learners,
		&c.Status,
		&c.Feedback,
		&c.CreatedBy,
		&c.CreatedAt,
	)

	return c, err
}

func collectCourses(rows pgx.Rows) ([]models.Course, error) {
	var list []models.Course

	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}

		list = append(list, c)
	}

	return list, rows.Err()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
