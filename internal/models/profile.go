package models

// SessionUser is the user block of a login response.
type SessionUser struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Language string   `json:"language"`
	IsActive bool     `json:"isActive"`
	IsAdmin  bool     `json:"isAdmin"`
	Roles    []string `json:"roles,omitempty"`
}

// Profile represents a successful login response
// swagger:model Profile
type Profile struct {
	// Logged in user
	User SessionUser `json:"user"`

	// Session token
	// example: JWT_TOKEN
	Token string `json:"token"`
}
