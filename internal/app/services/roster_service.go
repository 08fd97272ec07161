package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/metrics"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
	"github.com/yigit/classroom/internal/pkg/validation"
)

// Flash messages
const (
	msgRosterCreated        = "Your classroom roster has been saved!"
	msgRosterDeleted        = "Roster successfully deleted!"
	msgLinked               = "Student and GitHub account linked!"
	msgUnlinked             = "Student and GitHub account unlinked!"
	msgEntryRemoved         = "Student successfully removed from roster!"
	msgNoStudentsCreated    = "No students created."
	msgStudentsCreated      = "Students created."
	msgStudentsDeduplicated = "Students created. Some duplicates have been omitted."
)

// Roster creation sources, used as metric labels
const (
	sourceManual = "manual"
	sourceGoogle = "google_classroom"
)

// RosterService defines the roster management operations
type RosterService interface {
	GetRoster(ctx context.Context, org *models.Organization, query *dto.RosterQuery) (*dto.RosterResponse, error)
	ExportCSV(ctx context.Context, org *models.Organization, groupingID *int64) (*dto.CSVFile, error)
	CreateRoster(ctx context.Context, org *models.Organization, req *dto.CreateRosterRequest) (*dto.ActionResponse, error)
	AddStudents(ctx context.Context, org *models.Organization, req *dto.AddStudentsRequest) (*dto.ActionResponse, error)
	LinkEntry(ctx context.Context, org *models.Organization, entryID, userID int64) (*dto.ActionResponse, error)
	UnlinkEntry(ctx context.Context, org *models.Organization, entryID int64) (*dto.ActionResponse, error)
	DeleteEntry(ctx context.Context, org *models.Organization, entryID int64) (*dto.ActionResponse, error)
	RemoveRoster(ctx context.Context, org *models.Organization) (*dto.ActionResponse, error)
}

// rosterServiceImpl implements RosterService
type rosterServiceImpl struct {
	rosters   RosterStore
	entries   RosterEntryStore
	users     UserStore
	groupings GroupingStore
	resolver  *UnlinkedUserResolver
}

// NewRosterService creates a new roster service
func NewRosterService(
	rosters RosterStore,
	entries RosterEntryStore,
	users UserStore,
	groupings GroupingStore,
	resolver *UnlinkedUserResolver,
) RosterService {
	return &rosterServiceImpl{
		rosters:   rosters,
		entries:   entries,
		users:     users,
		groupings: groupings,
		resolver:  resolver,
	}
}

// currentRoster loads the organization's roster or fails with ErrRosterNotFound
func (s *rosterServiceImpl) currentRoster(ctx context.Context, org *models.Organization) (*models.Roster, error) {
	if !org.HasRoster() {
		return nil, apperrors.ErrRosterNotFound
	}
	return s.rosters.GetByID(ctx, *org.RosterID)
}

// groupNames resolves the optional grouping; nil without one
func (s *rosterServiceImpl) groupNames(ctx context.Context, org *models.Organization, groupingID *int64) (*models.Grouping, map[int64]string, error) {
	if groupingID == nil {
		return nil, nil, nil
	}

	grouping, err := s.groupings.GetByID(ctx, org.ID, *groupingID)
	if err != nil {
		return nil, nil, err
	}

	titles, err := s.groupings.UserGroupTitles(ctx, grouping.ID)
	if err != nil {
		return nil, nil, err
	}
	return grouping, titles, nil
}

// GetRoster returns one page of entries and one page of unlinked users
func (s *rosterServiceImpl) GetRoster(ctx context.Context, org *models.Organization, query *dto.RosterQuery) (*dto.RosterResponse, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	grouping, titles, err := s.groupNames(ctx, org, query.GroupingID)
	if err != nil {
		return nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(query.EntriesPage, query.Size)
	entries, total, err := s.entries.ListByRoster(ctx, roster.ID, offset, limit)
	if err != nil {
		return nil, err
	}

	entryResponses := make([]dto.RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := dto.FromRosterEntry(entry)
		if titles != nil && entry.UserID != nil {
			if title, ok := titles[*entry.UserID]; ok {
				resp.GroupName = &title
			}
		}
		entryResponses = append(entryResponses, resp)
	}

	unlinkedIDs, err := s.resolver.UnlinkedUserIDs(ctx, org)
	if err != nil {
		return nil, err
	}
	pageIDs, unlinkedPagination := helpers.Paginate(unlinkedIDs, query.UnlinkedPage, limit)

	users, err := s.users.GetByIDs(ctx, pageIDs)
	if err != nil {
		return nil, err
	}
	unlinkedUsers := make([]dto.UserSummary, 0, len(users))
	for _, u := range users {
		unlinkedUsers = append(unlinkedUsers, *dto.FromUser(u))
	}

	resp := &dto.RosterResponse{
		ID:                 roster.ID,
		IdentifierName:     roster.IdentifierName,
		GoogleCourseID:     org.GoogleCourseID,
		Entries:            entryResponses,
		EntriesPagination:  helpers.NewPaginationInfo(total, query.EntriesPage, limit),
		UnlinkedUsers:      unlinkedUsers,
		UnlinkedPagination: unlinkedPagination,
	}
	if grouping != nil {
		resp.Grouping = &dto.GroupingSummary{ID: grouping.ID, Title: grouping.Title}
	}
	return resp, nil
}

// ExportCSV renders the whole roster ordered by identifier
func (s *rosterServiceImpl) ExportCSV(ctx context.Context, org *models.Organization, groupingID *int64) (*dto.CSVFile, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	_, titles, err := s.groupNames(ctx, org, groupingID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListAllByRoster(ctx, roster.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteRosterCSV(&buf, entries, titles); err != nil {
		return nil, err
	}

	return &dto.CSVFile{Filename: RosterCSVFilename, Content: buf.Bytes()}, nil
}

// buildRoster turns identifiers into a roster ready to be stored.
// googleUserIDs, when given, is parallel to identifiers.
func buildRoster(identifierName string, identifiers []string, googleUserIDs []string) (*models.Roster, error) {
	if len(identifiers) == 0 {
		return nil, apperrors.ErrNoIdentifiers
	}
	if identifierName == "" {
		identifierName = models.DefaultIdentifierName
	}

	roster := &models.Roster{IdentifierName: identifierName}
	for i, identifier := range identifiers {
		if !validation.ValidIdentifier(identifier) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidIdentifier, identifier)
		}
		entry := &models.RosterEntry{Identifier: identifier}
		if i < len(googleUserIDs) && googleUserIDs[i] != "" {
			id := googleUserIDs[i]
			entry.GoogleUserID = &id
		}
		roster.Entries = append(roster.Entries, entry)
	}
	return roster, nil
}

func rosterCreated(org *models.Organization, roster *models.Roster, source string) *dto.ActionResponse {
	metrics.RostersCreatedTotal.WithLabelValues(source).Inc()
	metrics.RosterEntriesCreatedTotal.WithLabelValues(source).Add(float64(len(roster.Entries)))

	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgRosterCreated},
		Redirect: RosterPath(org.Slug),
		Data: dto.RosterResponse{
			ID:             roster.ID,
			IdentifierName: roster.IdentifierName,
			Entries:        entryResponses(roster.Entries),
		},
	}
}

func entryResponses(entries []*models.RosterEntry) []dto.RosterEntryResponse {
	out := make([]dto.RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.FromRosterEntry(entry))
	}
	return out
}

// CreateRoster creates the organization's roster from a pasted identifier list
func (s *rosterServiceImpl) CreateRoster(ctx context.Context, org *models.Organization, req *dto.CreateRosterRequest) (*dto.ActionResponse, error) {
	roster, err := buildRoster(req.IdentifierName, validation.SplitIdentifiers(req.Identifiers), nil)
	if err != nil {
		return nil, err
	}

	if err := s.rosters.CreateForOrganization(ctx, org.ID, roster, nil); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("organizationID", org.ID).
		Int64("rosterID", roster.ID).
		Int("entries", len(roster.Entries)).
		Msg("Roster created")

	return rosterCreated(org, roster, sourceManual), nil
}

// AddStudents adds identifiers to the roster, omitting those already on it
func (s *rosterServiceImpl) AddStudents(ctx context.Context, org *models.Organization, req *dto.AddStudentsRequest) (*dto.ActionResponse, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	identifiers := validation.SplitIdentifiers(req.Identifiers)
	if len(identifiers) == 0 {
		return nil, apperrors.ErrNoIdentifiers
	}

	entries := make([]*models.RosterEntry, 0, len(identifiers))
	for _, identifier := range identifiers {
		if !validation.ValidIdentifier(identifier) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidIdentifier, identifier)
		}
		entries = append(entries, &models.RosterEntry{Identifier: identifier})
	}

	created, err := s.entries.CreateEntries(ctx, roster.ID, entries)
	if err != nil {
		return nil, err
	}
	metrics.RosterEntriesCreatedTotal.WithLabelValues(sourceManual).Add(float64(len(created)))

	flash := dto.Flash{Level: dto.FlashSuccess, Message: msgStudentsCreated}
	switch {
	case len(created) == 0:
		flash = dto.Flash{Level: dto.FlashWarning, Message: msgNoStudentsCreated}
	case len(created) < len(identifiers):
		flash.Message = msgStudentsDeduplicated
	}

	return &dto.ActionResponse{
		Flash:    flash,
		Redirect: RosterPath(org.Slug),
		Data:     entryResponses(created),
	}, nil
}

// LinkEntry links the entry to a user from the organization's unlinked set
func (s *rosterServiceImpl) LinkEntry(ctx context.Context, org *models.Organization, entryID, userID int64) (*dto.ActionResponse, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	if _, err := s.entries.GetByID(ctx, roster.ID, entryID); err != nil {
		return nil, err
	}

	// checked under the roster lock so a concurrent link cannot slip in between
	onlyUnlinked := func(ctx context.Context) error {
		unlinked, err := s.resolver.IsUnlinked(ctx, org, userID)
		if err != nil {
			return err
		}
		if !unlinked {
			return apperrors.ErrUserNotUnlinked
		}
		return nil
	}

	if err := s.entries.Link(ctx, roster.ID, entryID, userID, onlyUnlinked); err != nil {
		metrics.RosterActionsTotal.WithLabelValues("link", metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.RosterActionsTotal.WithLabelValues("link", metrics.OutcomeSuccess).Inc()

	logger.FromContext(ctx).Info().Int64("entryID", entryID).Int64("userID", userID).Msg("Roster entry linked")
	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgLinked},
		Redirect: RosterPath(org.Slug),
	}, nil
}

// UnlinkEntry clears the entry's user
func (s *rosterServiceImpl) UnlinkEntry(ctx context.Context, org *models.Organization, entryID int64) (*dto.ActionResponse, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	if err := s.entries.Unlink(ctx, roster.ID, entryID); err != nil {
		metrics.RosterActionsTotal.WithLabelValues("unlink", metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.RosterActionsTotal.WithLabelValues("unlink", metrics.OutcomeSuccess).Inc()

	logger.FromContext(ctx).Info().Int64("entryID", entryID).Msg("Roster entry unlinked")
	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgUnlinked},
		Redirect: RosterPath(org.Slug),
	}, nil
}

// DeleteEntry removes an entry unless it is the last one
func (s *rosterServiceImpl) DeleteEntry(ctx context.Context, org *models.Organization, entryID int64) (*dto.ActionResponse, error) {
	roster, err := s.currentRoster(ctx, org)
	if err != nil {
		return nil, err
	}

	if err := s.entries.DeleteGuarded(ctx, roster.ID, entryID); err != nil {
		metrics.RosterActionsTotal.WithLabelValues("delete", metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.RosterActionsTotal.WithLabelValues("delete", metrics.OutcomeSuccess).Inc()

	logger.FromContext(ctx).Info().Int64("entryID", entryID).Msg("Roster entry deleted")
	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgEntryRemoved},
		Redirect: RosterPath(org.Slug),
	}, nil
}

// RemoveRoster detaches the roster from the organization, deleting it when
// no other organization uses it.
func (s *rosterServiceImpl) RemoveRoster(ctx context.Context, org *models.Organization) (*dto.ActionResponse, error) {
	if !org.HasRoster() {
		return nil, apperrors.ErrRosterNotFound
	}

	deleted, err := s.rosters.RemoveFromOrganization(ctx, org.ID, *org.RosterID)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("organizationID", org.ID).
		Int64("rosterID", *org.RosterID).
		Bool("deleted", deleted).
		Msg("Roster removed from organization")
	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgRosterDeleted},
		Redirect: OrganizationPath(org.Slug),
	}, nil
}
