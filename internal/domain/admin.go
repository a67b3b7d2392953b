package domain

import "time"

// AdminRole enumerates back-office roles.
type AdminRole string

const (
	AdminRoleModerator AdminRole = "MODERATOR"
	AdminRoleAdmin     AdminRole = "ADMIN"
)

// Admin models a back-office operator reviewing KYC and orders.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
