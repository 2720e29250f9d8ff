package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medichain/medichain/internal/config"
	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/validation"
	"github.com/medichain/medichain/pkg/auth"
	"github.com/medichain/medichain/pkg/metrics"
)

// Collectors register against the default prometheus registry, so the test
// binary shares a single instance.
var testCollector = metrics.NewCollector("medichain_test")

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) clone(u *domain.User) *domain.User {
	c := *u
	c.PasswordHistory = append(domain.PasswordHistory(nil), u.PasswordHistory...)
	return &c
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = r.clone(u)
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return r.clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIDNumber(_ context.Context, idNumber string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.IDNumber == idNumber {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, attempts int, disable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FailedAttempts = attempts
	if disable {
		u.Active = false
	}
	return nil
}

func (r *fakeUserRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FailedAttempts = 0
	u.LockUntil = nil
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id uuid.UUID, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *fakeUserRepo) ConsumeResetToken(_ context.Context, email, token string, now time.Time, newHash string, history domain.PasswordHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email != email {
			continue
		}
		if !u.HasValidResetToken(token, now) {
			return false, nil
		}
		u.PasswordHash = newHash
		u.PasswordHistory = append(domain.PasswordHistory(nil), history...)
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		return true, nil
	}
	return false, nil
}

type captureMailer struct {
	mu   sync.Mutex
	to   []string
	body []string
}

func (m *captureMailer) Send(to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.body = append(m.body, body)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.body) == 0 {
		t.Fatal("no mail captured")
	}
	parts := strings.Fields(m.body[len(m.body)-1])
	return parts[len(parts)-1]
}

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *domain.AuditLog) error { return nil }

func newTestAuthService(t *testing.T, repo *fakeUserRepo, mail *captureMailer) *AuthService {
	t.Helper()
	log := zap.NewNop()
	audit := NewAuditService(nopAuditRepo{}, testCollector, log)
	t.Cleanup(audit.Shutdown)

	jwtMgr := auth.NewJWTManager(config.JWTConfig{
		Secret:     "auth-service-test-secret-32-chars!!!",
		SessionTTL: time.Hour,
		Issuer:     "medichain-test",
	})
	return NewAuthService(repo, jwtMgr, mail, audit, testCollector, log)
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}
	u := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		FirstName:       "Dana",
		LastName:        "Levi",
		IDNumber:        "123456789",
		Phone:           "0521234567",
		BirthDate:       time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		Role:            domain.RolePatient,
		PasswordHash:    string(hash),
		PasswordHistory: domain.PasswordHistory{string(hash)},
		Active:          true,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func TestLoginSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")

	user, token, expiresAt, err := svc.Login(context.Background(), "a@x.com", "Abcdef1!", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != u.ID || user.Role != domain.RolePatient {
		t.Errorf("unexpected user: %+v", user)
	}
	if token == "" {
		t.Error("empty session token")
	}
	if time.Until(expiresAt) > time.Hour {
		t.Errorf("expiry beyond session TTL: %v", expiresAt)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), &captureMailer{})

	_, _, _, err := svc.Login(context.Background(), "missing@x.com", "Abcdef1!", "127.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginDisabledBeforePasswordCheck(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")

	repo.mu.Lock()
	repo.users[u.ID].Active = false
	repo.mu.Unlock()

	// Even the correct password must not get past the disabled check.
	_, _, _, err := svc.Login(context.Background(), "a@x.com", "Abcdef1!", "127.0.0.1")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("Login error = %v, want ErrAccountDisabled", err)
	}
}

func TestLoginTemporaryLock(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")

	until := time.Now().Add(10 * time.Minute)
	repo.mu.Lock()
	repo.users[u.ID].LockUntil = &until
	repo.mu.Unlock()

	_, _, _, err := svc.Login(context.Background(), "a@x.com", "Abcdef1!", "127.0.0.1")
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Login error = %v, want ErrAccountLocked", err)
	}
}

func TestLoginLockoutAfterThreeFailures(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, _, _, err := svc.Login(ctx, "a@x.com", "wrong-pass", "127.0.0.1")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v, want ErrInvalidCredentials", i, err)
		}
	}

	// Third failure flips Active permanently.
	_, _, _, err := svc.Login(ctx, "a@x.com", "wrong-pass", "127.0.0.1")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("third attempt: error = %v, want ErrAccountDisabled", err)
	}

	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.Active {
		t.Error("account still active after third failure")
	}

	// The correct password is now rejected with the disabled error.
	_, _, _, err = svc.Login(ctx, "a@x.com", "Abcdef1!", "127.0.0.1")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("post-lockout login: error = %v, want ErrAccountDisabled", err)
	}
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		svc.Login(ctx, "a@x.com", "wrong-pass", "127.0.0.1")
	}

	if _, _, _, err := svc.Login(ctx, "a@x.com", "Abcdef1!", "127.0.0.1"); err != nil {
		t.Fatalf("successful login after 2 failures: %v", err)
	}

	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.FailedAttempts != 0 {
		t.Fatalf("FailedAttempts = %d after success, want 0", stored.FailedAttempts)
	}

	// The next failure counts from 1, not 3, so the account stays active.
	svc.Login(ctx, "a@x.com", "wrong-pass", "127.0.0.1")
	stored, _ = repo.GetByID(ctx, u.ID)
	if stored.FailedAttempts != 1 {
		t.Errorf("FailedAttempts = %d, want 1", stored.FailedAttempts)
	}
	if !stored.Active {
		t.Error("account disabled after a single post-success failure")
	}
}

func TestRegisterDefaultsToPatient(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})

	user, err := svc.Register(context.Background(), validation.Registration{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "new@x.com",
		Phone:     "0521234567",
		IDNumber:  "987654321",
		Password:  "Abcdef1!",
		BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RolePatient {
		t.Errorf("Role = %v, want RolePatient", user.Role)
	}
	if len(user.PasswordHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(user.PasswordHistory))
	}
}

func TestRegisterDuplicateIDNumber(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	seedUser(t, repo, "a@x.com", "Abcdef1!")

	_, err := svc.Register(context.Background(), validation.Registration{
		FirstName: "Noa",
		LastName:  "Cohen",
		Email:     "other@x.com",
		Phone:     "0520000000",
		IDNumber:  "123456789",
		Password:  "Abcdef1!",
		BirthDate: time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, domain.ErrIDNumberTaken) {
		t.Errorf("Register error = %v, want ErrIDNumberTaken", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), &captureMailer{})

	_, err := svc.Register(context.Background(), validation.Registration{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "new@x.com",
		Phone:     "0521234567",
		IDNumber:  "987654321",
		Password:  "short",
		BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Register error = %v, want ValidationError", err)
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &captureMailer{}
	svc := newTestAuthService(t, repo, mail)
	seedUser(t, repo, "a@x.com", "Abcdef1!")
	ctx := context.Background()

	if err := svc.RequestPasswordReset(ctx, "a@x.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token := mail.lastToken(t)

	if err := svc.VerifyResetToken(ctx, "a@x.com", token); err != nil {
		t.Fatalf("VerifyResetToken: %v", err)
	}
	// Verification is pure and repeatable.
	if err := svc.VerifyResetToken(ctx, "a@x.com", token); err != nil {
		t.Fatalf("second VerifyResetToken: %v", err)
	}

	if err := svc.ResetPassword(ctx, "a@x.com", token, "Newpass1!", "127.0.0.1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// The commit consumed the token: both verify and a replayed commit fail.
	if err := svc.VerifyResetToken(ctx, "a@x.com", token); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("verify after commit: error = %v, want ErrInvalidResetToken", err)
	}
	if err := svc.ResetPassword(ctx, "a@x.com", token, "Another1!", "127.0.0.1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("replayed commit: error = %v, want ErrInvalidResetToken", err)
	}

	// And the new password logs in.
	if _, _, _, err := svc.Login(ctx, "a@x.com", "Newpass1!", "127.0.0.1"); err != nil {
		t.Errorf("login with reset password: %v", err)
	}
}

func TestResetTokenExpired(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &captureMailer{})
	u := seedUser(t, repo, "a@x.com", "Abcdef1!")
	ctx := context.Background()

	token := "deadbeef"
	expired := time.Now().Add(-time.Minute)
	repo.mu.Lock()
	repo.users[u.ID].ResetToken = &token
	repo.users[u.ID].ResetTokenExpiry = &expired
	repo.mu.Unlock()

	if err := svc.VerifyResetToken(ctx, "a@x.com", token); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("verify expired: error = %v, want ErrInvalidResetToken", err)
	}
	if err := svc.ResetPassword(ctx, "a@x.com", token, "Newpass1!", "127.0.0.1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("commit expired: error = %v, want ErrInvalidResetToken", err)
	}
}

func TestResetRequestLeaksExistence(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), &captureMailer{})

	// Unlike login, the reset request reports unknown emails distinctly.
	err := svc.RequestPasswordReset(context.Background(), "missing@x.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("RequestPasswordReset error = %v, want ErrUserNotFound", err)
	}
}

func TestResetRejectsRecentPasswords(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &captureMailer{}
	svc := newTestAuthService(t, repo, mail)
	seedUser(t, repo, "a@x.com", "Password1!")
	ctx := context.Background()

	reset := func(newPassword string) error {
		t.Helper()
		if err := svc.RequestPasswordReset(ctx, "a@x.com"); err != nil {
			t.Fatalf("RequestPasswordReset: %v", err)
		}
		return svc.ResetPassword(ctx, "a@x.com", mail.lastToken(t), newPassword, "127.0.0.1")
	}

	// Rotate through three more passwords: Password1! .. Password4! are now
	// the last distinct passwords set.
	for _, p := range []string{"Password2!", "Password3!", "Password4!"} {
		if err := reset(p); err != nil {
			t.Fatalf("rotating to %s: %v", p, err)
		}
	}

	// The last three (2,3,4) are rejected, the current one included.
	for _, p := range []string{"Password2!", "Password3!", "Password4!"} {
		if err := reset(p); !errors.Is(err, ErrPasswordReused) {
			t.Errorf("reuse of %s: error = %v, want ErrPasswordReused", p, err)
		}
	}

	// Password1! has rotated out of the bounded history and is usable again.
	if err := reset("Password1!"); err != nil {
		t.Errorf("reusing rotated-out password: %v", err)
	}
}
