package services

import (
	"context"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/googleclassroom"
	"golang.org/x/oauth2"
)

// Stores consumed by the services. The concrete implementations live in the
// repositories package.

// OrganizationStore reads organizations
type OrganizationStore interface {
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
	IsMember(ctx context.Context, organizationID, userID int64) (bool, error)
}

// RosterStore persists rosters
type RosterStore interface {
	GetByID(ctx context.Context, id int64) (*models.Roster, error)
	CreateForOrganization(ctx context.Context, organizationID int64, roster *models.Roster, googleCourseID *string) error
	RemoveFromOrganization(ctx context.Context, organizationID, rosterID int64) (bool, error)
}

// RosterEntryStore persists roster entries
type RosterEntryStore interface {
	ListByRoster(ctx context.Context, rosterID int64, offset, limit int) ([]*models.RosterEntry, int64, error)
	ListAllByRoster(ctx context.Context, rosterID int64) ([]*models.RosterEntry, error)
	GetByID(ctx context.Context, rosterID, entryID int64) (*models.RosterEntry, error)
	CreateEntries(ctx context.Context, rosterID int64, entries []*models.RosterEntry) ([]*models.RosterEntry, error)
	LinkedUserIDs(ctx context.Context, rosterID int64) ([]int64, error)
	Link(ctx context.Context, rosterID, entryID, userID int64, guard repositories.LinkGuard) error
	Unlink(ctx context.Context, rosterID, entryID int64) error
	DeleteGuarded(ctx context.Context, rosterID, entryID int64) error
}

// UserStore reads users
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
}

// AssignmentStore reads assignments
type AssignmentStore interface {
	GetByID(ctx context.Context, organizationID, assignmentID int64) (*models.Assignment, error)
	UserIDsWithRepos(ctx context.Context, assignmentID int64) ([]int64, error)
}

// GroupingStore reads groupings
type GroupingStore interface {
	GetByID(ctx context.Context, organizationID, groupingID int64) (*models.Grouping, error)
	UserGroupTitles(ctx context.Context, groupingID int64) (map[int64]string, error)
}

// ParticipationStore answers who took part in an organization's work
type ParticipationStore interface {
	AssignmentParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error)
	GroupParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error)
}

// GoogleCredentialStore persists Google OAuth tokens
type GoogleCredentialStore interface {
	Get(ctx context.Context, userID int64) (*models.GoogleCredential, error)
	Upsert(ctx context.Context, credential *models.GoogleCredential) error
}

// GoogleClassroomClient is the subset of the Google Classroom API in use
type GoogleClassroomClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	ListCourses(ctx context.Context, token *oauth2.Token) ([]googleclassroom.Course, *oauth2.Token, error)
	ListStudents(ctx context.Context, token *oauth2.Token, courseID string) ([]googleclassroom.Student, *oauth2.Token, error)
}

// StateSigner signs and verifies the OAuth state parameter
type StateSigner interface {
	GenerateStateToken(userID int64, organization string) (string, error)
	ParseStateToken(token string) (*auth.StateClaims, error)
}

// JSONCache is a best-effort cache
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Services holds all the service instances
type Services struct {
	UnlinkedUsers    *UnlinkedUserResolver
	Roster           RosterService
	AssignmentRoster AssignmentRosterService
	GoogleClassroom  GoogleClassroomService
}

// Dependencies are the collaborators the services need beyond the repositories
type Dependencies struct {
	GoogleClient   GoogleClassroomClient
	StateSigner    StateSigner
	CourseCache    JSONCache
	CourseCacheTTL time.Duration
}

// NewServices wires the services onto the repositories
func NewServices(repos *repositories.Repositories, deps Dependencies) *Services {
	resolver := NewUnlinkedUserResolver(repos.ParticipationRepository, repos.RosterEntryRepository)

	roster := NewRosterService(
		repos.RosterRepository,
		repos.RosterEntryRepository,
		repos.UserRepository,
		repos.GroupingRepository,
		resolver,
	)

	return &Services{
		UnlinkedUsers: resolver,
		Roster:        roster,
		AssignmentRoster: NewAssignmentRosterService(
			repos.AssignmentRepository,
			repos.RosterEntryRepository,
		),
		GoogleClassroom: NewGoogleClassroomService(
			deps.GoogleClient,
			repos.GoogleCredentialRepository,
			repos.RosterRepository,
			deps.StateSigner,
			deps.CourseCache,
			deps.CourseCacheTTL,
		),
	}
}
