package vouch

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName           string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName            string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username            string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email               string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone               string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash        string     `bun:"password_hash" json:"-"`
	SuperAdmin          bool       `bun:"is_super_admin" json:"is_super_admin,omitempty"`
	Verified            bool       `bun:"is_verified" json:"is_verified,omitempty"`
	LoginAttempts       int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt      *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt          *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SigninCode          string     `bun:"signin_code,nullzero" json:"-"`
	SigninCodeExpiresAt *time.Time `bun:"signin_code_expires_at,nullzero" json:"-"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt           *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Role derives the user's role from the super admin flag.
func (u *User) Role() UserRole {
	if u != nil && u.SuperAdmin {
		return RoleSuperAdmin
	}
	return RoleUser
}

// IsDeleted reports whether the user has been soft deleted.
func (u *User) IsDeleted() bool {
	return u != nil && u.DeletedAt != nil
}

// HasActiveSigninCode reports whether a pending sign in code exists and has
// not expired at the given instant.
func (u *User) HasActiveSigninCode(now time.Time) bool {
	if u == nil || u.SigninCode == "" || u.SigninCodeExpiresAt == nil {
		return false
	}
	return now.Before(*u.SigninCodeExpiresAt)
}

// Testimonial is a user submitted quote shown on the public site
type Testimonial struct {
	bun.BaseModel `bun:"table:testimonials,alias:tst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	Author        *User      `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Content       string     `bun:"content,notnull" json:"content,omitempty"`
	Rating        *int       `bun:"rating" json:"rating,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
