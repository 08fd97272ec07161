package models

import "time"

// GoogleCredential holds a user's OAuth token for the Google Classroom API
type GoogleCredential struct {
	UserID       int64      `db:"user_id"`
	AccessToken  string     `db:"access_token"`
	RefreshToken *string    `db:"refresh_token"`
	TokenType    *string    `db:"token_type"`
	Expiry       *time.Time `db:"expiry"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
