package models

import (
	"time"
)

// User is an authenticated GitHub account
type User struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	UID       int64     `json:"uid" db:"uid" example:"583231"`        // GitHub user id
	Login     string    `json:"login" db:"login" example:"octocat"`   // GitHub login
	Name      *string   `json:"name,omitempty" db:"name" example:"The Octocat"`
	AvatarURL *string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns the user's name, falling back to the login
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}
