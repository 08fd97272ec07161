package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func TestAssignmentRosterService_GetAssignmentRoster(t *testing.T) {
	ctx := context.Background()

	t.Run("orders accepted, linked, unlinked and pages", func(t *testing.T) {
		assignments := new(mockAssignmentStore)
		entries := new(mockRosterEntryStore)
		service := NewAssignmentRosterService(assignments, entries)

		assignments.On("GetByID", mock.Anything, int64(1), int64(5)).
			Return(&models.Assignment{ID: 5, OrganizationID: 1, Title: "Lab 1", Slug: "lab-1"}, nil)
		entries.On("ListAllByRoster", mock.Anything, int64(10)).Return([]*models.RosterEntry{
			{ID: 3, Identifier: "carol"},
			{ID: 2, Identifier: "bob", UserID: int64Ptr(200)},
			{ID: 1, Identifier: "alice", UserID: int64Ptr(100)},
		}, nil)
		assignments.On("UserIDsWithRepos", mock.Anything, int64(5)).Return([]int64{100}, nil)

		resp, err := service.GetAssignmentRoster(ctx, orgWithRoster(), 5, 1, 2)
		require.NoError(t, err)

		assert.Equal(t, "lab-1", resp.Assignment.Slug)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, int64(1), resp.Entries[0].ID)
		assert.Equal(t, models.EntryStatusAccepted, resp.Entries[0].Status)
		assert.Equal(t, int64(2), resp.Entries[1].ID)
		assert.Equal(t, models.EntryStatusLinked, resp.Entries[1].Status)
		assert.Equal(t, 2, resp.Pagination.TotalPages)
		assert.Equal(t, int64(3), resp.Pagination.TotalItems)

		resp, err = service.GetAssignmentRoster(ctx, orgWithRoster(), 5, 2, 2)
		require.NoError(t, err)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, int64(3), resp.Entries[0].ID)
		assert.Equal(t, models.EntryStatusUnlinked, resp.Entries[0].Status)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		assignments := new(mockAssignmentStore)
		assignments.On("GetByID", mock.Anything, int64(1), int64(6)).Return(nil, apperrors.ErrAssignmentNotFound)

		_, err := NewAssignmentRosterService(assignments, new(mockRosterEntryStore)).
			GetAssignmentRoster(ctx, orgWithRoster(), 6, 1, 10)
		assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
	})

	t.Run("organization without roster", func(t *testing.T) {
		assignments := new(mockAssignmentStore)
		assignments.On("GetByID", mock.Anything, int64(1), int64(5)).Return(&models.Assignment{ID: 5}, nil)

		_, err := NewAssignmentRosterService(assignments, new(mockRosterEntryStore)).
			GetAssignmentRoster(ctx, &models.Organization{ID: 1}, 5, 1, 10)
		assert.ErrorIs(t, err, apperrors.ErrRosterNotFound)
	})
}
