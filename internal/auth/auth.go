package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "backpack/internal/lib/logger"
	"backpack/internal/models"
	"backpack/internal/session"
	"backpack/internal/storage"
	"backpack/internal/verification"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
)

type Auth struct {
	log         *slog.Logger
	accSaver    AccountSaver
	accProvider AccountProvider
	challenges  *verification.Service
	sessions    *session.Manager
}

type AccountSaver interface {
	SaveAccount(ctx context.Context, email, displayName string, passHash []byte) (int64, error)
	SetEmailVerified(ctx context.Context, accountID int64) error
	UpdatePassword(ctx context.Context, accountID int64, passHash []byte) error
}

type AccountProvider interface {
	Account(ctx context.Context, email string) (models.Account, error)
	AccountByID(ctx context.Context, id int64) (models.Account, error)
}

func New(
	log *slog.Logger,
	accountSaver AccountSaver,
	accountProvider AccountProvider,
	challenges *verification.Service,
	sessions *session.Manager,
) *Auth {
	return &Auth{
		log:         log,
		accSaver:    accountSaver,
		accProvider: accountProvider,
		challenges:  challenges,
		sessions:    sessions,
	}
}

// Signup creates an unverified account and issues a signup challenge. The
// returned challenge id is what the caller submits together with the emailed
// code to finish registration.
func (a *Auth) Signup(
	ctx context.Context,
	email string,
	displayName string,
	pass string,
) (string, error) {
	const op = "auth.Signup"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	accountID, err := a.accSaver.SaveAccount(ctx, email, displayName, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("account already exists")
			return "", fmt.Errorf("%s: %w", op, ErrAccountExists)
		}

		log.Error("failed to save account", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	challengeID, err := a.challenges.Issue(ctx, email, accountID, models.PurposeSignup)
	if err != nil {
		log.Error("failed to issue signup challenge", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account registered", slog.Int64("account_id", accountID))

	return challengeID, nil
}

// VerifyEmail redeems a signup challenge and marks the account verified.
func (a *Auth) VerifyEmail(ctx context.Context, challengeID, code string) error {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	ch, err := a.challenges.Redeem(ctx, challengeID, code, models.PurposeSignup)
	if err != nil {
		return err
	}

	if err := a.accSaver.SetEmailVerified(ctx, ch.AccountID); err != nil {
		log.Error("failed to mark email verified", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.Int64("account_id", ch.AccountID))

	return nil
}

// * Login проверяет учетные данные и возвращает session token
func (a *Auth) Login(ctx context.Context, email, pass string) (string, models.Account, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	acc, err := a.accProvider.Account(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account not found")
			return "", models.Account{}, ErrInvalidCredentials
		}

		log.Error("failed to get account", sl.Err(err))
		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if !acc.IsVerified {
		return "", models.Account{}, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword(acc.PassHash, []byte(pass)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return "", models.Account{}, ErrInvalidCredentials
	}

	token, err := a.sessions.NewToken(acc)
	if err != nil {
		log.Error("failed to mint session token", sl.Err(err))
		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account logged in", slog.Int64("account_id", acc.ID))

	return token, acc, nil
}

// ResendVerification reissues the signup challenge for an unverified account.
// Returns storage.ErrAccountNotFound for unknown emails; the handler masks it
// to avoid email enumeration.
func (a *Auth) ResendVerification(ctx context.Context, email string) (string, error) {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	acc, err := a.accProvider.Account(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return "", storage.ErrAccountNotFound
		}

		log.Error("failed to get account", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if acc.IsVerified {
		log.Info("email already verified, nothing to resend")
		return "", nil
	}

	return a.challenges.Issue(ctx, acc.Email, acc.ID, models.PurposeSignup)
}

// RequestPasswordReset issues a password_reset challenge for the account.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "auth.RequestPasswordReset"

	log := a.log.With(slog.String("op", op))

	acc, err := a.accProvider.Account(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return "", storage.ErrAccountNotFound
		}

		log.Error("failed to get account", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return a.challenges.Issue(ctx, acc.Email, acc.ID, models.PurposePasswordReset)
}

// ResetPassword redeems a password_reset challenge and replaces the password.
func (a *Auth) ResetPassword(ctx context.Context, challengeID, code, newPass string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	ch, err := a.challenges.Redeem(ctx, challengeID, code, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.accSaver.UpdatePassword(ctx, ch.AccountID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.Int64("account_id", ch.AccountID))

	return nil
}
