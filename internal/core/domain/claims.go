package domain

import "time"

// Claims is the identity assertion carried inside an access token.
type Claims struct {
	ID        string    `json:"jti"`
	Subject   string    `json:"sub"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// ClaimsFor builds the claim set asserted for u. Timestamps are filled in by
// the token codec at issue time.
func ClaimsFor(u *User) Claims {
	return Claims{
		Subject: u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
	}
}
