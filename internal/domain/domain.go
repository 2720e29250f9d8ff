package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a closed enum. The numeric values are part of the wire contract:
// browser clients branch on userType 0/1/2.
type Role int

const (
	RoleAdmin   Role = 0
	RoleDoctor  Role = 1
	RolePatient Role = 2
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RolePatient:
		return "patient"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// PasswordHistory holds prior bcrypt hashes, oldest first, capped at
// HistoryLimit entries. Stored as a jsonb column.
type PasswordHistory []string

const HistoryLimit = 3

// Push appends a hash and drops the oldest entry beyond the cap.
func (h *PasswordHistory) Push(hash string) {
	*h = append(*h, hash)
	if len(*h) > HistoryLimit {
		*h = (*h)[len(*h)-HistoryLimit:]
	}
}

func (h PasswordHistory) Value() (driver.Value, error) {
	if h == nil {
		h = PasswordHistory{}
	}
	return json.Marshal(h)
}

func (h *PasswordHistory) Scan(value any) error {
	if value == nil {
		*h = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported password history type %T", value)
	}
	return json.Unmarshal(raw, h)
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Email     string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string `gorm:"column:first_name;type:varchar(100);not null" json:"firstName"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null" json:"lastName"`
	// National identification number, exactly 9 digits.
	IDNumber  string    `gorm:"column:id_number;type:varchar(9);uniqueIndex;not null" json:"idNumber"`
	Phone     string    `gorm:"column:phone;type:varchar(10);not null" json:"phone"`
	BirthDate time.Time `gorm:"column:birth_date;not null" json:"birthDate"`
	Role      Role      `gorm:"column:role;type:smallint;not null;index" json:"userType"`

	PasswordHash    string          `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	PasswordHistory PasswordHistory `gorm:"column:password_history;type:jsonb;not null;default:'[]'" json:"-"`

	// Active never auto-transitions false->true; only an admin can re-enable.
	Active         bool       `gorm:"column:active;default:true;index" json:"active"`
	FailedAttempts int        `gorm:"column:failed_attempts;default:0" json:"-"`
	LockUntil      *time.Time `gorm:"column:lock_until" json:"-"`
	LastLoginAt    *time.Time `gorm:"column:last_login_at" json:"-"`

	// ResetToken and ResetTokenExpiry are always set or cleared together.
	ResetToken       *string    `gorm:"column:reset_token;type:varchar(128)" json:"-"`
	ResetTokenExpiry *time.Time `gorm:"column:reset_token_expiry" json:"-"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked reports a live temporary lock, distinct from permanent disablement.
func (u *User) IsLocked() bool {
	return u.LockUntil != nil && time.Now().Before(*u.LockUntil)
}

// HasValidResetToken is the single verification predicate for the reset
// flow: token matches and expiry is strictly in the future.
func (u *User) HasValidResetToken(token string, now time.Time) bool {
	return u.ResetToken != nil && *u.ResetToken == token &&
		u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}

type AuditAction string

const (
	ActionCreate  AuditAction = "create"
	ActionRead    AuditAction = "read"
	ActionUpdate  AuditAction = "update"
	ActionDelete  AuditAction = "delete"
	ActionLogin   AuditAction = "login"
	ActionLogout  AuditAction = "logout"
	ActionLockout AuditAction = "lockout"
	ActionReset   AuditAction = "password_reset"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	UserRole  string    `gorm:"column:user_role;type:varchar(30)"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

// Claims is the payload of the session credential: identity plus role,
// validity bounded by the token's signature and expiry.
type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}
