package model

import "time"

// Permission tiers stored in users.role and embedded in access credentials.
const (
	RoleStandard      = "STANDARD"
	RoleModerator     = "MODERATOR"
	RoleAdministrator = "ADMINISTRATOR"
)

// ValidRole reports whether s is one of the known permission tiers.
func ValidRole(s string) bool {
	switch s {
	case RoleStandard, RoleModerator, RoleAdministrator:
		return true
	}
	return false
}

// User mirrors the `users` table. Only the fields needed to mint and
// verify credentials live here; profile data belongs to other services.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, lower-cased)
	DisplayName  string    // users.display_name
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // users.role (STANDARD | MODERATOR | ADMINISTRATOR)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
