// Package model defines the records shared by every store backend
package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Column names double as bson keys so a store.Patch means the same thing to
// the document and the relational backend.
const (
	FieldFirstname                    = "firstname"
	FieldLastname                     = "lastname"
	FieldEmail                        = "email"
	FieldPassword                     = "password"
	FieldRole                         = "role"
	FieldActive                       = "active"
	FieldActivationAccountToken       = "activation_account_token"
	FieldActivationAccountTokenExpire = "activation_account_token_expire"
	FieldPasswordResetToken           = "password_reset_token"
	FieldPasswordResetExpire          = "password_reset_expire"
	FieldEmailResetToken              = "email_reset_token"
	FieldEmailResetExpire             = "email_reset_expire"
	FieldAccountLocked                = "account_locked"
	FieldAccountLockedExpire          = "account_locked_expire"
	FieldAccountDisabled              = "account_disabled"
	FieldDisableAccountAt             = "disable_account_at"
	FieldLoginFailures                = "login_failures"
	FieldPasswordChangeAt             = "password_change_at"
	FieldEmailChangeAt                = "email_change_at"
	FieldCreatedAt                    = "created_at"
)

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Firstname string `gorm:"not null" json:"firstname"`
	Lastname  string `gorm:"not null" json:"lastname"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	// Only populated by elevated fetches
	Password string `json:"-"`
	Role     Role   `gorm:"default:user;index" json:"role"`
	Active   bool   `gorm:"default:false" json:"active"`

	ActivationAccountToken       *string    `gorm:"index" json:"-"`
	ActivationAccountTokenExpire *time.Time `json:"-"`
	PasswordResetToken           *string    `gorm:"index" json:"-"`
	PasswordResetExpire          *time.Time `json:"-"`
	EmailResetToken              *string    `gorm:"index" json:"-"`
	EmailResetExpire             *time.Time `json:"-"`

	AccountLocked       bool       `gorm:"default:false" json:"accountLocked"`
	AccountLockedExpire *time.Time `json:"accountLockedExpire,omitempty"`
	AccountDisabled     bool       `gorm:"default:false" json:"accountDisabled"`
	DisableAccountAt    *time.Time `json:"disableAccountAt,omitempty"`
	// nil after a successful login, never 0
	LoginFailures *int `json:"-"`

	PasswordChangeAt *time.Time `json:"-"`
	EmailChangeAt    *time.Time `json:"-"`
	CreatedAt        time.Time  `gorm:"not null" json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Failures returns the current failed login counter.
func (u *User) Failures() int {
	if u.LoginFailures == nil {
		return 0
	}
	return *u.LoginFailures
}

// LockActive reports whether the account lock is still in force at now.
func (u *User) LockActive(now time.Time) bool {
	return u.AccountLocked && u.AccountLockedExpire != nil && now.Before(*u.AccountLockedExpire)
}

// ActivationOutstanding reports whether an unexpired activation token exists.
func (u *User) ActivationOutstanding(now time.Time) bool {
	return u.ActivationAccountToken != nil &&
		u.ActivationAccountTokenExpire != nil &&
		now.Before(*u.ActivationAccountTokenExpire)
}

// ChangedAfter reports whether the password or the email changed after t,
// at millisecond precision. Sessions issued at t are no longer valid when it
// returns true.
func (u *User) ChangedAfter(t time.Time) bool {
	t = t.Truncate(time.Millisecond)

	for _, at := range []*time.Time{u.PasswordChangeAt, u.EmailChangeAt} {
		if at != nil && at.Truncate(time.Millisecond).After(t) {
			return true
		}
	}
	return false
}

func (u *User) FullName() string {
	return u.Firstname + " " + u.Lastname
}
