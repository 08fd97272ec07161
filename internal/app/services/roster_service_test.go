package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

type rosterFixture struct {
	rosters       *mockRosterStore
	entries       *mockRosterEntryStore
	users         *mockUserStore
	groupings     *mockGroupingStore
	participation *mockParticipationStore
	service       RosterService
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		rosters:       new(mockRosterStore),
		entries:       new(mockRosterEntryStore),
		users:         new(mockUserStore),
		groupings:     new(mockGroupingStore),
		participation: new(mockParticipationStore),
	}
	resolver := NewUnlinkedUserResolver(f.participation, f.entries)
	f.service = NewRosterService(f.rosters, f.entries, f.users, f.groupings, resolver)
	return f
}

func orgWithRoster() *models.Organization {
	return &models.Organization{ID: 1, Slug: "intro-to-cs", RosterID: int64Ptr(10)}
}

func (f *rosterFixture) expectRoster() {
	f.rosters.On("GetByID", mock.Anything, int64(10)).
		Return(&models.Roster{ID: 10, IdentifierName: "Student ID"}, nil)
}

func TestRosterService_CreateRoster(t *testing.T) {
	ctx := context.Background()

	t.Run("stores trimmed unique identifiers", func(t *testing.T) {
		f := newRosterFixture()
		org := &models.Organization{ID: 1, Slug: "intro-to-cs"}

		var stored *models.Roster
		f.rosters.On("CreateForOrganization", mock.Anything, int64(1), mock.AnythingOfType("*models.Roster"), mock.Anything).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*models.Roster)
				stored.ID = 10
				for i, e := range stored.Entries {
					e.ID = int64(i + 1)
					e.RosterID = 10
				}
			}).
			Return(nil)

		resp, err := f.service.CreateRoster(ctx, org, &dto.CreateRosterRequest{
			Identifiers: " alice \r\nbob\n\nalice\n",
		})
		require.NoError(t, err)

		assert.Equal(t, dto.FlashSuccess, resp.Flash.Level)
		assert.Equal(t, "Your classroom roster has been saved!", resp.Flash.Message)
		assert.Equal(t, "/api/v1/organizations/intro-to-cs/roster", resp.Redirect)

		require.NotNil(t, stored)
		assert.Equal(t, models.DefaultIdentifierName, stored.IdentifierName)
		require.Len(t, stored.Entries, 2)
		assert.Equal(t, "alice", stored.Entries[0].Identifier)
		assert.Equal(t, "bob", stored.Entries[1].Identifier)

		data, ok := resp.Data.(dto.RosterResponse)
		require.True(t, ok)
		assert.Equal(t, int64(10), data.ID)
		assert.Len(t, data.Entries, 2)
	})

	t.Run("blank list is rejected", func(t *testing.T) {
		f := newRosterFixture()

		_, err := f.service.CreateRoster(ctx, &models.Organization{ID: 1}, &dto.CreateRosterRequest{Identifiers: "\n \n"})
		assert.ErrorIs(t, err, apperrors.ErrNoIdentifiers)
		f.rosters.AssertNotCalled(t, "CreateForOrganization", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("overlong identifier is rejected", func(t *testing.T) {
		f := newRosterFixture()

		_, err := f.service.CreateRoster(ctx, &models.Organization{ID: 1}, &dto.CreateRosterRequest{
			Identifiers: "alice\n" + strings.Repeat("x", 256),
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidIdentifier)
	})

	t.Run("existing roster", func(t *testing.T) {
		f := newRosterFixture()
		f.rosters.On("CreateForOrganization", mock.Anything, int64(1), mock.Anything, mock.Anything).
			Return(apperrors.ErrRosterAlreadyExists)

		_, err := f.service.CreateRoster(ctx, &models.Organization{ID: 1}, &dto.CreateRosterRequest{Identifiers: "alice"})
		assert.ErrorIs(t, err, apperrors.ErrRosterAlreadyExists)
	})
}

func TestRosterService_AddStudents(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		created   int
		wantLevel dto.FlashLevel
		wantMsg   string
	}{
		{"all created", 3, dto.FlashSuccess, "Students created."},
		{"some duplicates", 2, dto.FlashSuccess, "Students created. Some duplicates have been omitted."},
		{"nothing created", 0, dto.FlashWarning, "No students created."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRosterFixture()
			f.expectRoster()

			created := make([]*models.RosterEntry, 0, tt.created)
			for i := 0; i < tt.created; i++ {
				created = append(created, &models.RosterEntry{ID: int64(i + 1), RosterID: 10, Identifier: "s"})
			}
			f.entries.On("CreateEntries", mock.Anything, int64(10), mock.MatchedBy(func(entries []*models.RosterEntry) bool {
				return len(entries) == 3
			})).Return(created, nil)

			resp, err := f.service.AddStudents(ctx, orgWithRoster(), &dto.AddStudentsRequest{Identifiers: "carol\ndave\nerin"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, resp.Flash.Level)
			assert.Equal(t, tt.wantMsg, resp.Flash.Message)
			assert.Equal(t, RosterPath("intro-to-cs"), resp.Redirect)
		})
	}

	t.Run("organization without roster", func(t *testing.T) {
		f := newRosterFixture()

		_, err := f.service.AddStudents(ctx, &models.Organization{ID: 1}, &dto.AddStudentsRequest{Identifiers: "carol"})
		assert.ErrorIs(t, err, apperrors.ErrRosterNotFound)
	})
}

func TestRosterService_LinkEntry(t *testing.T) {
	ctx := context.Background()

	setup := func() *rosterFixture {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("GetByID", mock.Anything, int64(10), int64(7)).
			Return(&models.RosterEntry{ID: 7, RosterID: 10, Identifier: "alice"}, nil)
		f.participation.On("AssignmentParticipantIDs", mock.Anything, int64(1)).Return([]int64{20, 21}, nil)
		f.participation.On("GroupParticipantIDs", mock.Anything, int64(1)).Return([]int64{}, nil)
		f.entries.On("LinkedUserIDs", mock.Anything, int64(10)).Return([]int64{21}, nil)
		return f
	}

	t.Run("unlinked user", func(t *testing.T) {
		f := setup()
		f.entries.On("Link", mock.Anything, int64(10), int64(7), int64(20)).Return(nil)

		resp, err := f.service.LinkEntry(ctx, orgWithRoster(), 7, 20)
		require.NoError(t, err)
		assert.Equal(t, "Student and GitHub account linked!", resp.Flash.Message)
		f.entries.AssertExpectations(t)
	})

	t.Run("user already linked", func(t *testing.T) {
		f := setup()

		_, err := f.service.LinkEntry(ctx, orgWithRoster(), 7, 21)
		assert.ErrorIs(t, err, apperrors.ErrUserNotUnlinked)
		assert.Equal(t, 1, f.entries.linkAttempts, "membership is checked inside the locked link")
		f.entries.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("user outside the organization", func(t *testing.T) {
		f := setup()

		_, err := f.service.LinkEntry(ctx, orgWithRoster(), 7, 99)
		assert.ErrorIs(t, err, apperrors.ErrUserNotUnlinked)
		assert.Equal(t, 1, f.entries.linkAttempts)
	})

	t.Run("membership lookup fails under the lock", func(t *testing.T) {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("GetByID", mock.Anything, int64(10), int64(7)).
			Return(&models.RosterEntry{ID: 7, RosterID: 10, Identifier: "alice"}, nil)
		f.participation.On("AssignmentParticipantIDs", mock.Anything, int64(1)).Return(nil, errors.New("connection reset"))

		_, err := f.service.LinkEntry(ctx, orgWithRoster(), 7, 20)
		require.Error(t, err)
		assert.Equal(t, 1, f.entries.linkAttempts)
		f.entries.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown entry", func(t *testing.T) {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("GetByID", mock.Anything, int64(10), int64(8)).Return(nil, apperrors.ErrRosterEntryNotFound)

		_, err := f.service.LinkEntry(ctx, orgWithRoster(), 8, 20)
		assert.ErrorIs(t, err, apperrors.ErrRosterEntryNotFound)
	})
}

func TestRosterService_UnlinkAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("unlink", func(t *testing.T) {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("Unlink", mock.Anything, int64(10), int64(7)).Return(nil)

		resp, err := f.service.UnlinkEntry(ctx, orgWithRoster(), 7)
		require.NoError(t, err)
		assert.Equal(t, "Student and GitHub account unlinked!", resp.Flash.Message)
	})

	t.Run("delete", func(t *testing.T) {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("DeleteGuarded", mock.Anything, int64(10), int64(7)).Return(nil)

		resp, err := f.service.DeleteEntry(ctx, orgWithRoster(), 7)
		require.NoError(t, err)
		assert.Equal(t, "Student successfully removed from roster!", resp.Flash.Message)
	})

	t.Run("delete last entry", func(t *testing.T) {
		f := newRosterFixture()
		f.expectRoster()
		f.entries.On("DeleteGuarded", mock.Anything, int64(10), int64(7)).Return(apperrors.ErrLastRosterEntry)

		_, err := f.service.DeleteEntry(ctx, orgWithRoster(), 7)
		assert.ErrorIs(t, err, apperrors.ErrLastRosterEntry)
	})
}

func TestRosterService_RemoveRoster(t *testing.T) {
	ctx := context.Background()

	t.Run("detaches and redirects to the organization", func(t *testing.T) {
		f := newRosterFixture()
		f.rosters.On("RemoveFromOrganization", mock.Anything, int64(1), int64(10)).Return(true, nil)

		resp, err := f.service.RemoveRoster(ctx, orgWithRoster())
		require.NoError(t, err)
		assert.Equal(t, "Roster successfully deleted!", resp.Flash.Message)
		assert.Equal(t, "/api/v1/organizations/intro-to-cs", resp.Redirect)
	})

	t.Run("no roster", func(t *testing.T) {
		f := newRosterFixture()

		_, err := f.service.RemoveRoster(ctx, &models.Organization{ID: 1, Slug: "intro-to-cs"})
		assert.ErrorIs(t, err, apperrors.ErrRosterNotFound)
	})
}

func TestRosterService_GetRoster(t *testing.T) {
	ctx := context.Background()
	f := newRosterFixture()
	f.expectRoster()

	entries := []*models.RosterEntry{
		{ID: 1, Identifier: "alice", UserID: int64Ptr(20), User: &models.User{ID: 20, Login: "alice-gh"}},
		{ID: 2, Identifier: "bob"},
	}
	f.groupings.On("GetByID", mock.Anything, int64(1), int64(3)).Return(&models.Grouping{ID: 3, Title: "Teams"}, nil)
	f.groupings.On("UserGroupTitles", mock.Anything, int64(3)).Return(map[int64]string{20: "Team A"}, nil)
	f.entries.On("ListByRoster", mock.Anything, int64(10), 0, 10).Return(entries, int64(2), nil)
	f.participation.On("AssignmentParticipantIDs", mock.Anything, int64(1)).Return([]int64{20, 30}, nil)
	f.participation.On("GroupParticipantIDs", mock.Anything, int64(1)).Return([]int64{31}, nil)
	f.entries.On("LinkedUserIDs", mock.Anything, int64(10)).Return([]int64{20}, nil)
	f.users.On("GetByIDs", mock.Anything, []int64{30, 31}).Return([]*models.User{
		{ID: 30, Login: "carol-gh"},
		{ID: 31, Login: "dave-gh"},
	}, nil)

	resp, err := f.service.GetRoster(ctx, orgWithRoster(), &dto.RosterQuery{GroupingID: int64Ptr(3)})
	require.NoError(t, err)

	assert.Equal(t, "Student ID", resp.IdentifierName)
	require.Len(t, resp.Entries, 2)
	require.NotNil(t, resp.Entries[0].GroupName)
	assert.Equal(t, "Team A", *resp.Entries[0].GroupName)
	assert.Equal(t, models.EntryStatusLinked, resp.Entries[0].Status)
	assert.Nil(t, resp.Entries[1].GroupName)
	assert.Equal(t, models.EntryStatusUnlinked, resp.Entries[1].Status)
	assert.Equal(t, int64(2), resp.EntriesPagination.TotalItems)

	require.Len(t, resp.UnlinkedUsers, 2)
	assert.Equal(t, "carol-gh", resp.UnlinkedUsers[0].Login)
	assert.Equal(t, int64(2), resp.UnlinkedPagination.TotalItems)
	require.NotNil(t, resp.Grouping)
	assert.Equal(t, "Teams", resp.Grouping.Title)
}

func TestRosterService_GetRoster_PageBeyondRange(t *testing.T) {
	ctx := context.Background()
	f := newRosterFixture()
	f.expectRoster()

	huge := math.MaxInt/10 + 2
	lastOffset := (helpers.MaxPage - 1) * helpers.DefaultPageSize
	f.entries.On("ListByRoster", mock.Anything, int64(10), lastOffset, helpers.DefaultPageSize).
		Return([]*models.RosterEntry{}, int64(2), nil)
	f.participation.On("AssignmentParticipantIDs", mock.Anything, int64(1)).Return([]int64{30}, nil)
	f.participation.On("GroupParticipantIDs", mock.Anything, int64(1)).Return([]int64{}, nil)
	f.entries.On("LinkedUserIDs", mock.Anything, int64(10)).Return([]int64{}, nil)
	f.users.On("GetByIDs", mock.Anything, mock.Anything).Return([]*models.User{}, nil)

	var resp *dto.RosterResponse
	var err error
	require.NotPanics(t, func() {
		resp, err = f.service.GetRoster(ctx, orgWithRoster(), &dto.RosterQuery{EntriesPage: huge, UnlinkedPage: huge})
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	assert.Empty(t, resp.UnlinkedUsers)
	assert.Equal(t, 1, resp.UnlinkedPagination.CurrentPage)
	f.entries.AssertExpectations(t)
}

func TestRosterService_ExportCSV(t *testing.T) {
	ctx := context.Background()
	f := newRosterFixture()
	f.expectRoster()
	f.entries.On("ListAllByRoster", mock.Anything, int64(10)).Return([]*models.RosterEntry{
		{ID: 1, Identifier: "alice", UserID: int64Ptr(20), User: &models.User{ID: 20, UID: 7, Login: "alice-gh"}},
		{ID: 2, Identifier: "bob"},
	}, nil)

	file, err := f.service.ExportCSV(ctx, orgWithRoster(), nil)
	require.NoError(t, err)
	assert.Equal(t, "classroom_roster.csv", file.Filename)
	assert.Equal(t,
		"identifier,github_username,github_id,name,status\nalice,alice-gh,7,,linked\nbob,,,,unlinked\n",
		string(file.Content))
}

func TestRosterService_ExportCSV_UnknownGrouping(t *testing.T) {
	f := newRosterFixture()
	f.expectRoster()
	f.groupings.On("GetByID", mock.Anything, int64(1), int64(9)).Return(nil, apperrors.ErrGroupingNotFound)

	_, err := f.service.ExportCSV(context.Background(), orgWithRoster(), int64Ptr(9))
	assert.ErrorIs(t, err, apperrors.ErrGroupingNotFound)
}
