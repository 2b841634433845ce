package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleRegular is the default role assigned at signup
	RoleRegular UserRole = "regular"
	// RoleGuide can run tours
	RoleGuide UserRole = "guide"
	// RoleLeadGuide can manage tours and guides
	RoleLeadGuide UserRole = "lead-guide"
	// RoleAdmin can do everything
	RoleAdmin UserRole = "admin"
)

// KnownRole reports whether role belongs to the closed enumeration.
func KnownRole(role UserRole) bool {
	switch role {
	case RoleRegular, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// PasswordChangedAtMargin is subtracted from "now" when the watermark is
// bumped, so a token issued in the same instant as the change is never
// treated as pre-change.
const PasswordChangedAtMargin = time.Second

// User is the account record
type User struct {
	bun.BaseModel          `bun:"table:users,alias:usr"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                   UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Name                   string     `bun:"name,notnull" json:"name,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash           string     `bun:"password_hash,notnull" json:"-"`
	PasswordChangedAt      *time.Time `bun:"password_changed_at,nullzero" json:"-"`
	PasswordResetDigest    *string    `bun:"password_reset_digest,nullzero" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at,nullzero" json:"-"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ChangedPasswordAfter reports whether the password was mutated after the
// given issuance instant. A nil watermark means the password was never
// changed since creation.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Before(*u.PasswordChangedAt)
}

// HasOutstandingReset reports whether a reset digest is set and not expired.
func (u *User) HasOutstandingReset(now time.Time) bool {
	if u.PasswordResetDigest == nil || u.PasswordResetExpiresAt == nil {
		return false
	}
	return !now.After(*u.PasswordResetExpiresAt)
}

// Identity returns the identity view of the user used for token issuance.
func (u *User) Identity() Identity {
	return authIdentity{
		id:    u.ID.String(),
		email: u.Email,
		role:  u.Role,
	}
}

type authIdentity struct {
	id    string
	email string
	role  string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

var _ Identity = authIdentity{}
