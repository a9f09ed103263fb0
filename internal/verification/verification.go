package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/big"
	"sync"
	"time"

	sl "backpack/internal/lib/logger"
	"backpack/internal/models"
	"backpack/internal/storage"
)

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge expired")
	ErrChallengeExhausted = errors.New("challenge attempts exhausted")
	ErrDeliveryFailed     = errors.New("failed to deliver verification code")
)

// CodeMismatchError reports a wrong code for a still-active challenge.
type CodeMismatchError struct {
	AttemptsRemaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.AttemptsRemaining)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type ChallengeStore interface {
	SaveChallenge(ctx context.Context, ch models.Challenge, ttl time.Duration) error
	Challenge(ctx context.Context, id string) (models.Challenge, error)
	UpdateAttempts(ctx context.Context, id string, attempts int) error
	DeleteChallenge(ctx context.Context, id string) error
	DeleteActiveChallenge(ctx context.Context, email, purpose string) error
}

type Service struct {
	log         *slog.Logger
	store       ChallengeStore
	pub         Publisher
	ttl         time.Duration
	maxAttempts int
	locks       keyedMutex

	now func() time.Time
}

func New(
	log *slog.Logger,
	store ChallengeStore,
	pub Publisher,
	ttl time.Duration,
	maxAttempts int,
) *Service {
	return &Service{
		log:         log,
		store:       store,
		pub:         pub,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// * Issue создает новый challenge и отправляет код на почту
//
// Issuing replaces any still-active challenge for the same email and purpose,
// so only the most recent code is redeemable. The code itself is never
// returned to the HTTP caller, only the challenge id is.
func (s *Service) Issue(ctx context.Context, email string, accountID int64, purpose string) (string, error) {
	const op = "verification.Issue"

	log := s.log.With(slog.String("op", op))

	code, err := generateCode()
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := generateChallengeID()
	if err != nil {
		log.Error("failed to generate challenge id", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	ch := models.Challenge{
		ID:        id,
		Code:      code,
		Email:     email,
		AccountID: accountID,
		Purpose:   purpose,
		IssuedAt:  s.now(),
		Attempts:  0,
	}

	// Replacing the previous challenge and saving the new one must not
	// interleave with another Issue for the same email, or the loser's
	// challenge falls out of the active index and stays redeemable.
	unlock := s.locks.lock(purpose + ":" + email)

	if err := s.store.DeleteActiveChallenge(ctx, email, purpose); err != nil {
		unlock()
		log.Error("failed to invalidate previous challenge", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SaveChallenge(ctx, ch, s.ttl); err != nil {
		unlock()
		log.Error("failed to save challenge", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	unlock()

	msg := models.Message{
		Email:   email,
		Code:    code,
		Purpose: purpose,
	}

	// Retry policy is "none": if the publish fails the challenge must not be
	// considered delivered, so it is discarded and the caller gets an error.
	if err := s.pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish verification code", sl.Err(err))

		if delErr := s.store.DeleteChallenge(ctx, id); delErr != nil {
			log.Error("failed to discard undelivered challenge", sl.Err(delErr))
		}

		return "", fmt.Errorf("%s: %w", op, ErrDeliveryFailed)
	}

	log.Info("challenge issued", slog.Int64("account_id", accountID), slog.String("purpose", purpose))

	return id, nil
}

// Redeem validates a submitted (challengeId, code) pair and consumes the
// challenge on success. Redemption is exactly-once: a successful challenge is
// deleted, so a replay fails with ErrChallengeNotFound.
func (s *Service) Redeem(ctx context.Context, id, code, purpose string) (models.Challenge, error) {
	const op = "verification.Redeem"

	log := s.log.With(slog.String("op", op))

	// Racing redemptions of the same challenge must not lose attempt
	// increments, so each challenge id is handled by one goroutine at a time.
	unlock := s.locks.lock(id)
	defer unlock()

	ch, err := s.store.Challenge(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrChallengeNotFound) {
			log.Warn("unknown challenge id")
			return models.Challenge{}, ErrChallengeNotFound
		}

		log.Error("failed to load challenge", sl.Err(err))
		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}

	if ch.Purpose != purpose {
		log.Warn("challenge purpose mismatch", slog.String("purpose", ch.Purpose))
		return models.Challenge{}, ErrChallengeNotFound
	}

	if ch.IsExpired(s.ttl, s.now()) {
		log.Warn("challenge expired", slog.Time("issued_at", ch.IssuedAt))

		if err := s.store.DeleteChallenge(ctx, id); err != nil {
			log.Error("failed to delete expired challenge", sl.Err(err))
		}

		return models.Challenge{}, ErrChallengeExpired
	}

	// Checked before comparing the code: an exhausted challenge is dead even
	// for the correct code, and the lookup itself does not consume an attempt.
	if ch.IsExhausted(s.maxAttempts) {
		log.Warn("challenge exhausted", slog.Int("attempts", ch.Attempts))

		if err := s.store.DeleteChallenge(ctx, id); err != nil {
			log.Error("failed to delete exhausted challenge", sl.Err(err))
		}

		return models.Challenge{}, ErrChallengeExhausted
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		ch.Attempts++

		if err := s.store.UpdateAttempts(ctx, id, ch.Attempts); err != nil {
			log.Error("failed to persist attempt count", sl.Err(err))
			return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("invalid code submitted", slog.Int("attempts", ch.Attempts))

		return models.Challenge{}, &CodeMismatchError{
			AttemptsRemaining: s.maxAttempts - ch.Attempts,
		}
	}

	if err := s.store.DeleteChallenge(ctx, id); err != nil {
		log.Error("failed to consume challenge", sl.Err(err))
		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("challenge redeemed", slog.Int64("account_id", ch.AccountID), slog.String("purpose", ch.Purpose))

	return ch, nil
}

// generateCode returns a uniformly random zero-padded 6-digit decimal code.
// Leading zeros are valid: the range is 000000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generateChallengeID returns 128 bits of hex-encoded entropy.
func generateChallengeID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// keyedMutex serializes work per key with a fixed set of striped locks.
type keyedMutex struct {
	mu [64]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))

	m := &k.mu[h.Sum32()%uint32(len(k.mu))]
	m.Lock()

	return m.Unlock
}
