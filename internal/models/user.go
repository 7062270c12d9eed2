package models

// User is the current-user snapshot returned by GET /api/user/me/.
// Immutable once fetched; a fresh snapshot replaces it wholesale.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// IsAdmin returns true if the user may access the admin console.
func (u *User) IsAdmin() bool {
	return u.IsStaff || u.IsSuperuser
}

// FullName returns the user's display name, falling back to the email.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}
