package domain

import "time"

// Role defines what an API client may do
type Role string

const (
	RoleAdmin  Role = "admin"  // Write records, run exports
	RoleReader Role = "reader" // Search only
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleReader
}

// AuthContext contains authenticated client info for request context
type AuthContext struct {
	ClientID string `json:"client_id"`
	Role     Role   `json:"role"`
}

// IsAdmin checks if the authenticated client is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TokenRequest exchanges client credentials for an access token
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse is returned after successful authentication
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	ClientID  string `json:"client_id"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// APIClient is a configured caller of the HTTP API
type APIClient struct {
	ID         string
	SecretHash string // bcrypt
	Role       Role
}
