package memory

import (
	"context"
	"sync"
	"time"

	"backpack/internal/models"
	"backpack/internal/storage"
)

// Repo is an in-memory implementation of the account, challenge and course
// stores. It backs tests and local development; the interfaces it satisfies
// are the same ones the postgres and redis repos implement.
type Repo struct {
	mu sync.RWMutex

	nextAccountID int64
	accounts      map[string]models.Account // keyed by email
	challenges    map[string]challengeEntry // keyed by challenge id
	active        map[string]string         // purpose:email -> challenge id
	courses       map[string]models.Course  // keyed by course id
	dashboards    map[int64][]string        // account id -> saved course ids
}

type challengeEntry struct {
	ch        models.Challenge
	expiresAt time.Time
}

func New() *Repo {
	return &Repo{
		nextAccountID: 1,
		accounts:      make(map[string]models.Account),
		challenges:    make(map[string]challengeEntry),
		active:        make(map[string]string),
		courses:       make(map[string]models.Course),
		dashboards:    make(map[int64][]string),
	}
}

func (r *Repo) SaveAccount(ctx context.Context, email, displayName string, passHash []byte) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[email]; ok {
		return 0, storage.ErrAccountExists
	}

	id := r.nextAccountID
	r.nextAccountID++

	r.accounts[email] = models.Account{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		PassHash:    passHash,
		CreatedAt:   time.Now(),
	}

	return id, nil
}

func (r *Repo) Account(ctx context.Context, email string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[email]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return acc, nil
}

func (r *Repo) AccountByID(ctx context.Context, id int64) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, acc := range r.accounts {
		if acc.ID == id {
			return acc, nil
		}
	}

	return models.Account{}, storage.ErrAccountNotFound
}

func (r *Repo) SetEmailVerified(ctx context.Context, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, acc := range r.accounts {
		if acc.ID == accountID {
			acc.IsVerified = true
			r.accounts[email] = acc
			return nil
		}
	}

	return storage.ErrAccountNotFound
}

func (r *Repo) UpdatePassword(ctx context.Context, accountID int64, passHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, acc := range r.accounts {
		if acc.ID == accountID {
			acc.PassHash = passHash
			r.accounts[email] = acc
			return nil
		}
	}

	return storage.ErrAccountNotFound
}

func activeKey(email, purpose string) string {
	return purpose + ":" + email
}

func (r *Repo) SaveChallenge(ctx context.Context, ch models.Challenge, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.challenges[ch.ID] = challengeEntry{
		ch:        ch,
		expiresAt: ch.IssuedAt.Add(ttl),
	}
	r.active[activeKey(ch.Email, ch.Purpose)] = ch.ID

	return nil
}

func (r *Repo) Challenge(ctx context.Context, id string) (models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.challenges[id]
	if !ok {
		return models.Challenge{}, storage.ErrChallengeNotFound
	}

	// mimic redis key expiry: evict on read once the TTL has passed
	if time.Now().After(entry.expiresAt) {
		r.deleteChallengeLocked(id, entry)

		return models.Challenge{}, storage.ErrChallengeNotFound
	}

	return entry.ch, nil
}

func (r *Repo) UpdateAttempts(ctx context.Context, id string, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.challenges[id]
	if !ok {
		return storage.ErrChallengeNotFound
	}

	entry.ch.Attempts = attempts
	r.challenges[id] = entry

	return nil
}

func (r *Repo) DeleteChallenge(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.challenges[id]
	if !ok {
		return nil
	}

	r.deleteChallengeLocked(id, entry)

	return nil
}

// deleteChallengeLocked removes a challenge and, only when the active index
// still references it, the index entry. The index may already point at a
// newer challenge for the same email.
func (r *Repo) deleteChallengeLocked(id string, entry challengeEntry) {
	delete(r.challenges, id)

	key := activeKey(entry.ch.Email, entry.ch.Purpose)
	if r.active[key] == id {
		delete(r.active, key)
	}
}

func (r *Repo) DeleteActiveChallenge(ctx context.Context, email, purpose string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := activeKey(email, purpose)

	if id, ok := r.active[key]; ok {
		delete(r.challenges, id)
		delete(r.active, key)
	}

	return nil
}

func (r *Repo) SaveCourse(ctx context.Context, c models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.courses[c.ID] = c

	return nil
}

func (r *Repo) UpdateCourseStatus(ctx context.Context, courseID, status, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.courses[courseID]
	if !ok {
		return storage.ErrCourseNotFound
	}

	c.Status = status
	c.Feedback = feedback
	r.courses[courseID] = c

	return nil
}

func (r *Repo) Course(ctx context.Context, courseID string) (models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[courseID]
	if !ok {
		return models.Course{}, storage.ErrCourseNotFound
	}

	return c, nil
}

func (r *Repo) CoursesByStatus(ctx context.Context, status string) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []models.Course
	for _, c := range r.courses {
		if c.Status == status {
			list = append(list, c)
		}
	}

	return list, nil
}

func (r *Repo) SaveToDashboard(ctx context.Context, accountID int64, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.dashboards[accountID] {
		if id == courseID {
			return storage.ErrAlreadyOnDashboard
		}
	}

	r.dashboards[accountID] = append(r.dashboards[accountID], courseID)

	return nil
}

func (r *Repo) RemoveFromDashboard(ctx context.Context, accountID int64, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := r.dashboards[accountID]
	for i, id := range saved {
		if id == courseID {
			r.dashboards[accountID] = append(saved[:i], saved[i+1:]...)
			return nil
		}
	}

	return nil
}

func (r *Repo) DashboardCourses(ctx context.Context, accountID int64) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []models.Course
	for _, id := range r.dashboards[accountID] {
		if c, ok := r.courses[id]; ok {
			list = append(list, c)
		}
	}

	return list, nil
}
