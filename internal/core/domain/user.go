package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// UserRole enumerates roles a user can hold within a tenant.
type UserRole string

const (
	UserRoleOwner UserRole = "owner"
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// User mirrors the persisted representation in the users table. Email-track
// users carry a password hash; phone-track users authenticate through SMS
// codes and have no password.
type User struct {
	ID           string
	TenantID     *string
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	PasswordHash string
	PasswordAlgo string
	Role         UserRole
	Status       UserStatus
	RegisteredAt time.Time
	LastLogin    *time.Time
}

// FullName joins first and last name for display and notification templates.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
