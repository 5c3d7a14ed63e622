package models

import "time"

// Role is the closed set of account roles. Authority to approve is a separate
// durable capability (HasApprovalAuthority), not derived from the role string.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Name                 string    `json:"name"`
	Role                 Role      `json:"role"`
	Lab                  string    `json:"lab,omitempty"`
	Designation          string    `json:"designation,omitempty"`
	HasApprovalAuthority bool      `json:"hasApprovalAuthority"`
	CreatedAt            time.Time `json:"createdAt"`
}

type UserResponse struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Role                 Role   `json:"role"`
	Lab                  string `json:"lab,omitempty"`
	Designation          string `json:"designation,omitempty"`
	HasApprovalAuthority bool   `json:"hasApprovalAuthority"`
	CreatedAt            string `json:"createdAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 u.Role,
		Lab:                  u.Lab,
		Designation:          u.Designation,
		HasApprovalAuthority: u.HasApprovalAuthority,
		CreatedAt:            u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
