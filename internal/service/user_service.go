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
	"github.com/medichain/medichain/internal/validation"
)

type UpdateUserCommand struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	BirthDate *time.Time
	Role      *domain.Role
	Active    *bool
}

type UserAdminRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDNumber(ctx context.Context, idNumber string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateUserCommand) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UserService covers admin-side account management: the only place a
// disabled account can come back to life and the only place roles change.
type UserService struct {
	repo     UserAdminRepository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewUserService(repo UserAdminRepository, auditSvc *AuditService, log *zap.Logger) *UserService {
	return &UserService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

type CreateUserCommand struct {
	validation.Registration
	Role domain.Role
}

// CreateUser provisions an account with a selectable role, unlike
// self-service registration which is always Patient.
func (s *UserService) CreateUser(ctx context.Context, cmd *CreateUserCommand, caller *domain.User, ip string) (*domain.User, error) {
	if err := cmd.Registration.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if !cmd.Role.IsValid() {
		return nil, &ValidationError{Message: "Invalid user role."}
	}

	if _, err := s.repo.GetByIDNumber(ctx, cmd.IDNumber); err == nil {
		return nil, domain.ErrIDNumberTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking id number: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:           cmd.Email,
		FirstName:       cmd.FirstName,
		LastName:        cmd.LastName,
		IDNumber:        cmd.IDNumber,
		Phone:           cmd.Phone,
		BirthDate:       cmd.BirthDate,
		Role:            cmd.Role,
		PasswordHash:    string(hash),
		PasswordHistory: domain.PasswordHistory{string(hash)},
		Active:          true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
	})

	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, cmd *UpdateUserCommand, caller *domain.User, ip string) (*domain.User, error) {
	if cmd.Role != nil && !cmd.Role.IsValid() {
		return nil, &ValidationError{Message: "Invalid user role."}
	}

	user, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID, caller *domain.User, ip string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionDelete,
		ResourceType: "user",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

// SetActive is the sole legitimate false->true transition for the Active
// flag; lockouts stay permanent until an admin comes through here.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool, caller *domain.User, ip string) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"active":%t}`, active),
	})

	if active {
		s.log.Info("account re-enabled by admin",
			zap.String("user_id", id.String()),
			zap.String("admin_id", caller.ID.String()),
		)
	}

	return nil
}

// UserName is the minimal public projection used to label contracts and
// appointments.
type UserName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *UserService) GetUserName(ctx context.Context, idNumber string) (*UserName, error) {
	user, err := s.repo.GetByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	return &UserName{FirstName: user.FirstName, LastName: user.LastName}, nil
}
