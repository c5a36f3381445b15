// internal/models/user.go
package models

// AdminUser is an authenticated portal administrator.
type AdminUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
