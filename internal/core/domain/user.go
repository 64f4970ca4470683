package domain

// RoleCustomer is assigned when a registration does not name a role.
const RoleCustomer = "customer"

// User models an account in the credential store.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
