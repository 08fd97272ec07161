package models

import "time"

// Grouping is a named set of groups (teams) under an organization
type Grouping struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	Title          string `json:"title" db:"title"`
	Slug           string `json:"slug" db:"slug"`
}

// Group is one team of a grouping
type Group struct {
	ID         int64  `json:"id" db:"id"`
	GroupingID int64  `json:"groupingId" db:"grouping_id"`
	Title      string `json:"title" db:"title"`
	Slug       string `json:"slug" db:"slug"`
}

// RepoAccess records a user's access to the organization's group repositories
type RepoAccess struct {
	ID             int64     `json:"id" db:"id"`
	UserID         *int64    `json:"userId,omitempty" db:"user_id"`
	OrganizationID int64     `json:"organizationId" db:"organization_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
