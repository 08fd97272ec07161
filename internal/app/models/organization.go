package models

import "time"

// Organization is an instructor's GitHub organization integration. It owns at
// most one roster; several organizations may share the same roster.
type Organization struct {
	ID             int64     `json:"id" db:"id"`
	GitHubID       int64     `json:"githubId" db:"github_id"`
	Title          string    `json:"title" db:"title"`
	Slug           string    `json:"slug" db:"slug"`
	RosterID       *int64    `json:"rosterId,omitempty" db:"roster_id"`
	GoogleCourseID *string   `json:"googleCourseId,omitempty" db:"google_course_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// HasRoster reports whether a roster is attached
func (o *Organization) HasRoster() bool {
	return o.RosterID != nil
}
