package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/mailer"
	"github.com/medichain/medichain/internal/validation"
	"github.com/medichain/medichain/pkg/auth"
	"github.com/medichain/medichain/pkg/metrics"
)

// maxFailedAttempts failed logins permanently disable the account; only an
// admin can re-enable it.
const maxFailedAttempts = 3

const resetTokenTTL = time.Hour

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDNumber(ctx context.Context, idNumber string) (*domain.User, error)

	// RecordLoginFailure persists the incremented counter; disable also
	// clears the Active flag in the same write.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, attempts int, disable bool) error
	// RecordLoginSuccess zeroes the counter and clears any temporary lock.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID) error

	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	// ConsumeResetToken atomically swaps the password and clears the token,
	// guarded by the token+expiry predicate. Returns false when the guard
	// did not hold, which also covers a concurrent commit that won the race.
	ConsumeResetToken(ctx context.Context, email, token string, now time.Time, newHash string, history domain.PasswordHistory) (bool, error)
}

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	mail       mailer.Mailer
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewAuthService(
	userRepo UserRepository,
	jwtManager *auth.JWTManager,
	mail mailer.Mailer,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		mail:       mail,
		auditSvc:   auditSvc,
		metrics:    m,
		log:        log,
	}
}

// Login verifies credentials and issues a session token. The check order is
// a security contract: unknown email collapses into the generic credential
// error, the disabled and locked states are reported before the password is
// ever compared, and only an active, unlocked account reaches bcrypt.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.User, string, time.Time, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Use bcrypt dummy hash to prevent timing-based user enumeration.
			// An attacker measuring response time should not be able to determine
			// whether the email exists in the system.
			_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			s.metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, fmt.Errorf("looking up user: %w", err)
	}

	if !user.Active {
		s.metrics.LoginsTotal.WithLabelValues("disabled").Inc()
		return nil, "", time.Time{}, ErrAccountDisabled
	}

	if user.IsLocked() {
		s.metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return nil, "", time.Time{}, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts := user.FailedAttempts + 1
		disable := attempts >= maxFailedAttempts

		if err := s.userRepo.RecordLoginFailure(ctx, user.ID, attempts, disable); err != nil {
			return nil, "", time.Time{}, fmt.Errorf("recording failed attempt: %w", err)
		}

		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
			zap.Int("attempts", attempts),
		)

		if disable {
			s.metrics.LoginsTotal.WithLabelValues("disabled").Inc()
			s.metrics.LockoutsTotal.Inc()
			s.auditSvc.LogAsync(ctx, AuditEntry{
				UserID:       user.ID,
				UserRole:     user.Role.String(),
				Action:       domain.ActionLockout,
				ResourceType: "user",
				ResourceID:   user.ID.String(),
				IPAddress:    ip,
			})
			return nil, "", time.Time{}, ErrAccountDisabled
		}

		s.metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("resetting failed attempts: %w", err)
	}

	claims := &domain.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	token, expiresAt, err := s.jwtManager.GenerateSessionToken(claims)
	if err != nil {
		s.log.Error("failed to generate session token", zap.Error(err))
		return nil, "", time.Time{}, fmt.Errorf("generating session token: %w", err)
	}

	s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role.String(),
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
	})
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return user, token, expiresAt, nil
}

// Register creates a self-service account. The role is always Patient;
// doctor and admin accounts are provisioned by an admin.
func (s *AuthService) Register(ctx context.Context, input validation.Registration) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if _, err := s.userRepo.GetByIDNumber(ctx, input.IDNumber); err == nil {
		return nil, domain.ErrIDNumberTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking id number: %w", err)
	}

	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:           input.Email,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		IDNumber:        input.IDNumber,
		Phone:           input.Phone,
		BirthDate:       input.BirthDate,
		Role:            domain.RolePatient,
		PasswordHash:    string(hash),
		PasswordHistory: domain.PasswordHistory{string(hash)},
		Active:          true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("new user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("id_number", user.IDNumber),
	)

	return user, nil
}

// RequestPasswordReset issues a fresh token with a one hour expiry and mails
// it to the account's address. A miss is reported as user-not-found: the
// endpoint deliberately confirms account existence, unlike login.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	expiry := time.Now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	// Delivery is best-effort: the token is already persisted, and failing
	// the request now would leave the caller unable to retry against a relay
	// outage they cannot see.
	if err := s.mail.Send(user.Email, fmt.Sprintf("Your password reset token is %s", token)); err != nil {
		s.log.Warn("reset token mail delivery failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.ResetRequestsTotal.Inc()
	return nil
}

// VerifyResetToken checks the token predicate without mutating anything, so
// clients can probe it repeatedly before committing.
func (s *AuthService) VerifyResetToken(ctx context.Context, email, token string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if !user.HasValidResetToken(token, time.Now()) {
		return ErrInvalidResetToken
	}
	return nil
}

// ResetPassword commits the reset: policy check, token predicate re-check,
// reuse check against the current and historical hashes, then an atomic
// consume that swaps the password and clears the token in one write.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword, ip string) error {
	if err := validation.Password(newPassword); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	now := time.Now()
	if !user.HasValidResetToken(token, now) {
		return ErrInvalidResetToken
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(newPassword)) == nil {
		s.metrics.ResetsTotal.WithLabelValues("reused").Inc()
		return ErrPasswordReused
	}
	for _, old := range user.PasswordHistory {
		if bcrypt.CompareHashAndPassword([]byte(old), []byte(newPassword)) == nil {
			s.metrics.ResetsTotal.WithLabelValues("reused").Inc()
			return ErrPasswordReused
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// History tracks the hashes of the last HistoryLimit passwords set,
	// newest last; the incoming hash joins it so the reuse window slides.
	history := user.PasswordHistory
	history.Push(string(hash))

	ok, err := s.userRepo.ConsumeResetToken(ctx, email, token, now, string(hash), history)
	if err != nil {
		return fmt.Errorf("consuming reset token: %w", err)
	}
	if !ok {
		// Token expired or was consumed by a concurrent commit.
		s.metrics.ResetsTotal.WithLabelValues("invalid_token").Inc()
		return ErrInvalidResetToken
	}

	s.metrics.ResetsTotal.WithLabelValues("success").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role.String(),
		Action:       domain.ActionReset,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
	})
	s.log.Info("password reset committed", zap.String("user_id", user.ID.String()))

	return nil
}
