package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// CreateRosterRequest creates the organization's roster
type CreateRosterRequest struct {
	IdentifierName string `json:"identifierName" binding:"max=255" example:"Student ID"`
	// Identifiers holds one identifier per line
	Identifiers string `json:"identifiers" binding:"required,identifiers" example:"alice\nbob"`
}

// AddStudentsRequest adds identifiers to an existing roster
type AddStudentsRequest struct {
	Identifiers string `json:"identifiers" binding:"required,identifiers" example:"carol\ndave"`
}

// LinkRequest links a roster entry to a GitHub user
type LinkRequest struct {
	UserID int64 `json:"userId" binding:"required,gt=0" example:"42"`
}

// RosterQuery holds the query parameters of the roster page
type RosterQuery struct {
	EntriesPage  int    `form:"roster_entries_page"`
	UnlinkedPage int    `form:"unlinked_users_page"`
	Size         int    `form:"size"`
	GroupingID   *int64 `form:"grouping"`
	Format       string `form:"format"`
}

// UserSummary is the public view of a GitHub user
type UserSummary struct {
	ID        int64   `json:"id" example:"42"`
	GitHubID  int64   `json:"githubId" example:"583231"`
	Login     string  `json:"login" example:"octocat"`
	Name      *string `json:"name,omitempty" example:"The Octocat"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// FromUser converts a models.User to a UserSummary
func FromUser(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		GitHubID:  u.UID,
		Login:     u.Login,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

// RosterEntryResponse is one entry of a roster
type RosterEntryResponse struct {
	ID           int64              `json:"id" example:"7"`
	Identifier   string             `json:"identifier" example:"alice"`
	GoogleUserID *string            `json:"googleUserId,omitempty"`
	Status       models.EntryStatus `json:"status" example:"linked" enums:"accepted,linked,unlinked"`
	User         *UserSummary       `json:"user,omitempty"`
	GroupName    *string            `json:"groupName,omitempty" example:"Team A"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// FromRosterEntry converts an entry; status is linked or unlinked
func FromRosterEntry(e *models.RosterEntry) RosterEntryResponse {
	status := models.EntryStatusUnlinked
	if e.IsLinked() {
		status = models.EntryStatusLinked
	}
	return RosterEntryResponse{
		ID:           e.ID,
		Identifier:   e.Identifier,
		GoogleUserID: e.GoogleUserID,
		Status:       status,
		User:         FromUser(e.User),
		CreatedAt:    e.CreatedAt,
	}
}

// GroupingSummary identifies the grouping chosen on the roster page
type GroupingSummary struct {
	ID    int64  `json:"id" example:"3"`
	Title string `json:"title" example:"Project teams"`
}

// RosterResponse is the roster page
type RosterResponse struct {
	ID                 int64                 `json:"id" example:"1"`
	IdentifierName     string                `json:"identifierName" example:"Identifiers"`
	GoogleCourseID     *string               `json:"googleCourseId,omitempty"`
	Entries            []RosterEntryResponse `json:"entries"`
	EntriesPagination  PaginationInfo        `json:"entriesPagination"`
	UnlinkedUsers      []UserSummary         `json:"unlinkedUsers"`
	UnlinkedPagination PaginationInfo        `json:"unlinkedPagination"`
	Grouping           *GroupingSummary      `json:"grouping,omitempty"`
}

// AssignmentSummary identifies an assignment
type AssignmentSummary struct {
	ID    int64  `json:"id" example:"5"`
	Title string `json:"title" example:"Lab 1"`
	Slug  string `json:"slug" example:"lab-1"`
}

// AssignmentRosterResponse lists roster entries ordered for an assignment
type AssignmentRosterResponse struct {
	Assignment AssignmentSummary     `json:"assignment"`
	Entries    []RosterEntryResponse `json:"entries"`
	Pagination PaginationInfo        `json:"pagination"`
}

// CSVFile is a rendered CSV download
type CSVFile struct {
	Filename string
	Content  []byte
}
