package users

import "time"

// RoleType is the platform role reported by the backend for a user
type RoleType string

const (
	RoleSuperAdmin RoleType = "superadmin"
	RoleAdmin      RoleType = "admin"
	RoleUser       RoleType = "user"
)

// Profile is the identity record returned by the "who am I" endpoint.
// The backend's copy is authoritative; the console only displays it.
type Profile struct {
	ID         string    `json:"_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       RoleType  `json:"role,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	IsVerified bool      `json:"isVerified,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// IsSuperAdmin reports whether the profile may use the admin screens.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// DisplayName falls back to the email when the profile has no name.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}
