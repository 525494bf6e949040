package vouch

import "time"

// PublicUser is the allow listed view of a user returned by the API.
// Password hash, super admin flag, verification state, deletion markers,
// and update timestamps never leave the server.
type PublicUser struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone_number,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// NewPublicUser copies the allow listed fields out of a user record.
func NewPublicUser(u *User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}
