package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user's authorization level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:      0,
	RoleModerator: 1,
	RoleAdmin:     2,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r matches or exceeds required.
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// User is the credential-store record. The password hash is never serialized.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	IsActive        bool       `json:"is_active"`
	Phone           *string    `json:"phone,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpdateProfileParams carries an explicit optional-field update: only non-nil
// fields are written.
type UpdateProfileParams struct {
	FullName    *string    `json:"full_name,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// UserStats is advisory profile metadata, safe to cache briefly.
type UserStats struct {
	UserID            uuid.UUID  `json:"user_id"`
	AccountAgeDays    int        `json:"account_age_days"`
	EmailVerified     bool       `json:"email_verified"`
	IsActive          bool       `json:"is_active"`
	Role              Role       `json:"role"`
	AddressCount      int        `json:"address_count"`
	NoteCount         int        `json:"note_count"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	ProfileCompletion int        `json:"profile_completion"`
}

// AdminStats is the system-wide summary served on the admin dashboard.
type AdminStats struct {
	TotalUsers    int `json:"total_users"`
	ActiveUsers   int `json:"active_users"`
	InactiveUsers int `json:"inactive_users"`
	AdminUsers    int `json:"admin_users"`
	TotalNotes    int `json:"total_notes"`
	PrivateNotes  int `json:"private_notes"`
	PublicNotes   int `json:"public_notes"`
}

// Response is the generic success/error envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
