package services

import (
	"context"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// AssignmentRosterService shows the roster from the point of view of one assignment
type AssignmentRosterService interface {
	GetAssignmentRoster(ctx context.Context, org *models.Organization, assignmentID int64, page, size int) (*dto.AssignmentRosterResponse, error)
}

type assignmentRosterServiceImpl struct {
	assignments AssignmentStore
	entries     RosterEntryStore
}

// NewAssignmentRosterService creates a new assignment roster service
func NewAssignmentRosterService(assignments AssignmentStore, entries RosterEntryStore) AssignmentRosterService {
	return &assignmentRosterServiceImpl{
		assignments: assignments,
		entries:     entries,
	}
}

// GetAssignmentRoster orders every roster entry for the assignment, then pages
func (s *assignmentRosterServiceImpl) GetAssignmentRoster(ctx context.Context, org *models.Organization, assignmentID int64, page, size int) (*dto.AssignmentRosterResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, org.ID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !org.HasRoster() {
		return nil, apperrors.ErrRosterNotFound
	}

	entries, err := s.entries.ListAllByRoster(ctx, *org.RosterID)
	if err != nil {
		return nil, err
	}

	acceptedIDs, err := s.assignments.UserIDsWithRepos(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	accepted := make(map[int64]struct{}, len(acceptedIDs))
	for _, id := range acceptedIDs {
		accepted[id] = struct{}{}
	}

	ordered := OrderForView(entries, acceptedIDs)
	pageEntries, pagination := helpers.Paginate(ordered, page, size)

	out := make([]dto.RosterEntryResponse, 0, len(pageEntries))
	for _, entry := range pageEntries {
		resp := dto.FromRosterEntry(entry)
		resp.Status = EntryStatus(entry, accepted)
		out = append(out, resp)
	}

	return &dto.AssignmentRosterResponse{
		Assignment: dto.AssignmentSummary{ID: assignment.ID, Title: assignment.Title, Slug: assignment.Slug},
		Entries:    out,
		Pagination: pagination,
	}, nil
}
