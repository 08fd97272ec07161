package models

import "time"

// Assignment belongs to an organization
type Assignment struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organizationId" db:"organization_id"`
	Title          string    `json:"title" db:"title"`
	Slug           string    `json:"slug" db:"slug"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// AssignmentRepo is the repository a user created by accepting an assignment
type AssignmentRepo struct {
	ID           int64     `json:"id" db:"id"`
	AssignmentID int64     `json:"assignmentId" db:"assignment_id"`
	UserID       *int64    `json:"userId,omitempty" db:"user_id"`
	GitHubRepoID int64     `json:"githubRepoId" db:"github_repo_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
