package users

import "time"

// User represents a user account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	// Role is the global role ("admin" grants the unconditional override).
	Role string
	// DownloadRole is the per-user downloads role; empty means unassigned
	// and resolves to the lowest-privilege role.
	DownloadRole string
	// OrgID/OrgRole carry an optional organization membership.
	OrgID     string
	OrgRole   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user carries the global admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
