package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/service"
)

// UserRepository is the single write path for secret, lockout and reset
// fields; every mutation is one UPDATE so partial state is never visible.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByIDNumber(ctx context.Context, idNumber string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("id_number = ?", idNumber).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, attempts int, disable bool) error {
	updates := map[string]any{"failed_attempts": attempts}
	if disable {
		updates["active"] = false
	}

	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_attempts": 0,
		"lock_until":      nil,
		"last_login_at":   time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken swaps the password and clears the token in a single
// conditional UPDATE. The WHERE clause is the verify predicate, so of two
// racing commits only one can see a row to update.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, email, token string, now time.Time, newHash string, history domain.PasswordHistory) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? AND reset_token = ? AND reset_token_expiry > ?", email, token, now).
		Updates(map[string]any{
			"password_hash":      newHash,
			"password_history":   history,
			"reset_token":        nil,
			"reset_token_expiry": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, cmd *service.UpdateUserCommand) (*domain.User, error) {
	updates := map[string]any{}
	if cmd.FirstName != nil {
		updates["first_name"] = *cmd.FirstName
	}
	if cmd.LastName != nil {
		updates["last_name"] = *cmd.LastName
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.BirthDate != nil {
		updates["birth_date"] = *cmd.BirthDate
	}
	if cmd.Role != nil {
		updates["role"] = *cmd.Role
	}
	if cmd.Active != nil {
		updates["active"] = *cmd.Active
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("updating user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrUserNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	updates := map[string]any{"active": active}
	if active {
		// Re-enabling starts the lockout counter fresh.
		updates["failed_attempts"] = 0
		updates["lock_until"] = nil
	}

	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
