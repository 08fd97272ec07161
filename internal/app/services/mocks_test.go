package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/googleclassroom"
	"golang.org/x/oauth2"
)

type mockRosterStore struct{ mock.Mock }

func (m *mockRosterStore) GetByID(ctx context.Context, id int64) (*models.Roster, error) {
	args := m.Called(ctx, id)
	roster, _ := args.Get(0).(*models.Roster)
	return roster, args.Error(1)
}

func (m *mockRosterStore) CreateForOrganization(ctx context.Context, organizationID int64, roster *models.Roster, googleCourseID *string) error {
	args := m.Called(ctx, organizationID, roster, googleCourseID)
	return args.Error(0)
}

func (m *mockRosterStore) RemoveFromOrganization(ctx context.Context, organizationID, rosterID int64) (bool, error) {
	args := m.Called(ctx, organizationID, rosterID)
	return args.Bool(0), args.Error(1)
}

type mockRosterEntryStore struct {
	mock.Mock
	linkAttempts int
}

func (m *mockRosterEntryStore) ListByRoster(ctx context.Context, rosterID int64, offset, limit int) ([]*models.RosterEntry, int64, error) {
	args := m.Called(ctx, rosterID, offset, limit)
	entries, _ := args.Get(0).([]*models.RosterEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockRosterEntryStore) ListAllByRoster(ctx context.Context, rosterID int64) ([]*models.RosterEntry, error) {
	args := m.Called(ctx, rosterID)
	entries, _ := args.Get(0).([]*models.RosterEntry)
	return entries, args.Error(1)
}

func (m *mockRosterEntryStore) GetByID(ctx context.Context, rosterID, entryID int64) (*models.RosterEntry, error) {
	args := m.Called(ctx, rosterID, entryID)
	entry, _ := args.Get(0).(*models.RosterEntry)
	return entry, args.Error(1)
}

func (m *mockRosterEntryStore) CreateEntries(ctx context.Context, rosterID int64, entries []*models.RosterEntry) ([]*models.RosterEntry, error) {
	args := m.Called(ctx, rosterID, entries)
	created, _ := args.Get(0).([]*models.RosterEntry)
	return created, args.Error(1)
}

func (m *mockRosterEntryStore) LinkedUserIDs(ctx context.Context, rosterID int64) ([]int64, error) {
	args := m.Called(ctx, rosterID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

// Link runs guard before recording the call, the way the repository runs it
// under the roster lock before updating.
func (m *mockRosterEntryStore) Link(ctx context.Context, rosterID, entryID, userID int64, guard repositories.LinkGuard) error {
	m.linkAttempts++
	if guard != nil {
		if err := guard(ctx); err != nil {
			return err
		}
	}
	return m.Called(ctx, rosterID, entryID, userID).Error(0)
}

func (m *mockRosterEntryStore) Unlink(ctx context.Context, rosterID, entryID int64) error {
	return m.Called(ctx, rosterID, entryID).Error(0)
}

func (m *mockRosterEntryStore) DeleteGuarded(ctx context.Context, rosterID, entryID int64) error {
	return m.Called(ctx, rosterID, entryID).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserStore) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

type mockAssignmentStore struct{ mock.Mock }

func (m *mockAssignmentStore) GetByID(ctx context.Context, organizationID, assignmentID int64) (*models.Assignment, error) {
	args := m.Called(ctx, organizationID, assignmentID)
	a, _ := args.Get(0).(*models.Assignment)
	return a, args.Error(1)
}

func (m *mockAssignmentStore) UserIDsWithRepos(ctx context.Context, assignmentID int64) ([]int64, error) {
	args := m.Called(ctx, assignmentID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type mockGroupingStore struct{ mock.Mock }

func (m *mockGroupingStore) GetByID(ctx context.Context, organizationID, groupingID int64) (*models.Grouping, error) {
	args := m.Called(ctx, organizationID, groupingID)
	g, _ := args.Get(0).(*models.Grouping)
	return g, args.Error(1)
}

func (m *mockGroupingStore) UserGroupTitles(ctx context.Context, groupingID int64) (map[int64]string, error) {
	args := m.Called(ctx, groupingID)
	titles, _ := args.Get(0).(map[int64]string)
	return titles, args.Error(1)
}

type mockParticipationStore struct{ mock.Mock }

func (m *mockParticipationStore) AssignmentParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error) {
	args := m.Called(ctx, organizationID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *mockParticipationStore) GroupParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error) {
	args := m.Called(ctx, organizationID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type mockCredentialStore struct{ mock.Mock }

func (m *mockCredentialStore) Get(ctx context.Context, userID int64) (*models.GoogleCredential, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*models.GoogleCredential)
	return c, args.Error(1)
}

func (m *mockCredentialStore) Upsert(ctx context.Context, credential *models.GoogleCredential) error {
	return m.Called(ctx, credential).Error(0)
}

type mockGoogleClient struct{ mock.Mock }

func (m *mockGoogleClient) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockGoogleClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, code)
	token, _ := args.Get(0).(*oauth2.Token)
	return token, args.Error(1)
}

func (m *mockGoogleClient) ListCourses(ctx context.Context, token *oauth2.Token) ([]googleclassroom.Course, *oauth2.Token, error) {
	args := m.Called(ctx, token)
	courses, _ := args.Get(0).([]googleclassroom.Course)
	current, _ := args.Get(1).(*oauth2.Token)
	return courses, current, args.Error(2)
}

func (m *mockGoogleClient) ListStudents(ctx context.Context, token *oauth2.Token, courseID string) ([]googleclassroom.Student, *oauth2.Token, error) {
	args := m.Called(ctx, token, courseID)
	students, _ := args.Get(0).([]googleclassroom.Student)
	current, _ := args.Get(1).(*oauth2.Token)
	return students, current, args.Error(2)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) GenerateStateToken(userID int64, organization string) (string, error) {
	args := m.Called(userID, organization)
	return args.String(0), args.Error(1)
}

func (m *mockSigner) ParseStateToken(token string) (*auth.StateClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*auth.StateClaims)
	return claims, args.Error(1)
}

// memoryCache is a map backed JSONCache
type memoryCache struct {
	values map[string]interface{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	if courses, ok := dest.(*[]googleclassroom.Course); ok {
		*courses = v.([]googleclassroom.Course)
	}
	return true, nil
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }
