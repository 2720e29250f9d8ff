package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medichain/medichain/internal/config"
	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/service"
	"github.com/medichain/medichain/pkg/auth"
	"github.com/medichain/medichain/pkg/metrics"
)

var testCollector = metrics.NewCollector("medichain_v1_test")

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *stubUserRepo) clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = r.clone(u)
	return nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.clone(u), nil
}

func (r *stubUserRepo) GetByIDNumber(_ context.Context, idNumber string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.IDNumber == idNumber {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, attempts int, disable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedAttempts = attempts
	if disable {
		u.Active = false
	}
	return nil
}

func (r *stubUserRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedAttempts = 0
	u.LockUntil = nil
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id uuid.UUID, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *stubUserRepo) ConsumeResetToken(_ context.Context, email, token string, now time.Time, newHash string, history domain.PasswordHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email != email {
			continue
		}
		if u.ResetToken == nil || *u.ResetToken != token || u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) {
			return false, nil
		}
		u.PasswordHash = newHash
		u.PasswordHistory = history
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		return true, nil
	}
	return false, nil
}

type stubMailer struct{}

func (stubMailer) Send(string, string) error { return nil }

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *domain.AuditLog) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: "test"},
		JWT: config.JWTConfig{
			Secret:     "handler-test-secret",
			SessionTTL: time.Hour,
			Issuer:     "medichain-test",
			CookieName: "token",
		},
	}
}

func newAuthRig(t *testing.T) (*gin.Engine, *stubUserRepo) {
	t.Helper()
	cfg := testConfig()
	repo := newStubUserRepo()
	log := zap.NewNop()
	auditSvc := service.NewAuditService(nopAuditRepo{}, testCollector, log)
	t.Cleanup(auditSvc.Shutdown)

	authSvc := service.NewAuthService(
		repo,
		auth.NewJWTManager(cfg.JWT),
		stubMailer{},
		auditSvc,
		testCollector,
		log,
	)
	h := NewAuthHandler(authSvc, cfg)

	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/register", h.Register)
	r.POST("/forgot-password", h.ForgotPassword)
	return r, repo
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		FirstName:       "Dana",
		LastName:        "Levi",
		IDNumber:        "123456789",
		Phone:           "0501234567",
		Role:            domain.RolePatient,
		PasswordHash:    string(hash),
		PasswordHistory: domain.PasswordHistory{string(hash)},
		Active:          true,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginSetsSessionCookie(t *testing.T) {
	r, repo := newAuthRig(t)
	seedUser(t, repo, "dana@example.com", "Sup3r$ecret")

	w := postJSON(t, r, "/login", gin.H{"email": "dana@example.com", "password": "Sup3r$ecret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message  string      `json:"message"`
		UserType domain.Role `json:"userType"`
		Active   bool        `json:"active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Login successful." || resp.UserType != domain.RolePatient || !resp.Active {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cookie := findCookie(w.Result().Cookies(), "token")
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.Secure {
		t.Fatal("secure attribute should be off outside production")
	}
}

func TestLoginWrongPasswordMessage(t *testing.T) {
	r, repo := newAuthRig(t)
	seedUser(t, repo, "dana@example.com", "Sup3r$ecret")

	w := postJSON(t, r, "/login", gin.H{"email": "dana@example.com", "password": "wrong-One1!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials.") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoginDisabledAccountMessage(t *testing.T) {
	r, repo := newAuthRig(t)
	u := seedUser(t, repo, "dana@example.com", "Sup3r$ecret")
	repo.users[u.ID].Active = false

	w := postJSON(t, r, "/login", gin.H{"email": "dana@example.com", "password": "Sup3r$ecret"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if !strings.Contains(w.Body.String(), "disabled") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoginMalformedBody(t *testing.T) {
	r, _ := newAuthRig(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "Invalid input type.") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r, _ := newAuthRig(t)

	w := postJSON(t, r, "/logout", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	cookie := findCookie(w.Result().Cookies(), "token")
	if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatal("expected the session cookie to be expired")
	}
}

func TestRegisterReturnsFirstValidationMessage(t *testing.T) {
	r, _ := newAuthRig(t)

	w := postJSON(t, r, "/register", gin.H{
		"firstName": "Dana",
		"lastName":  "Levi",
		"email":     "dana@example.com",
		"phone":     "0501234567",
		"idNumber":  "123456789",
		"password":  "short",
		"birthDate": "1990-04-01",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Password must be at least 8 characters long.") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRegisterSuccess(t *testing.T) {
	r, repo := newAuthRig(t)

	w := postJSON(t, r, "/register", gin.H{
		"firstName": "Dana",
		"lastName":  "Levi",
		"email":     "dana@example.com",
		"phone":     "0501234567",
		"idNumber":  "123456789",
		"password":  "Sup3r$ecret",
		"birthDate": "1990-04-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	u, err := repo.GetByEmail(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("registered user not stored: %v", err)
	}
	if u.Role != domain.RolePatient {
		t.Fatalf("role = %v, want patient", u.Role)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	r, _ := newAuthRig(t)

	w := postJSON(t, r, "/forgot-password", gin.H{"email": "ghost@example.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "User not found.") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
