package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/metrics"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/googleclassroom"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
	"golang.org/x/oauth2"
)

// GoogleCoursesPerPage is the page size of the course picker
const GoogleCoursesPerPage = 10

const (
	msgNoGoogleStudents = "No new students were found in your Google Classroom."
	msgGoogleConnected  = "Google Classroom account connected!"
	unknownStudent      = "Unknown student"
)

// GoogleClassroomService imports Google Classroom courses as rosters
type GoogleClassroomService interface {
	AuthorizationURL(ctx context.Context, userID int64, org *models.Organization) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*dto.ActionResponse, error)
	ListCourses(ctx context.Context, userID int64, org *models.Organization, page int) (*dto.GoogleCourseListResponse, error)
	SearchCourses(ctx context.Context, userID int64, org *models.Organization, query string, page int) (*dto.GoogleCourseListResponse, error)
	ImportCourse(ctx context.Context, userID int64, org *models.Organization, courseID string) (*dto.ActionResponse, error)
}

type googleClassroomServiceImpl struct {
	client      GoogleClassroomClient
	credentials GoogleCredentialStore
	rosters     RosterStore
	signer      StateSigner
	cache       JSONCache
	cacheTTL    time.Duration
}

// NewGoogleClassroomService creates a new Google Classroom service
func NewGoogleClassroomService(
	client GoogleClassroomClient,
	credentials GoogleCredentialStore,
	rosters RosterStore,
	signer StateSigner,
	cache JSONCache,
	cacheTTL time.Duration,
) GoogleClassroomService {
	return &googleClassroomServiceImpl{
		client:      client,
		credentials: credentials,
		rosters:     rosters,
		signer:      signer,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

func courseCacheKey(userID int64) string {
	return fmt.Sprintf("google_courses:%d", userID)
}

// AuthorizationURL returns the Google consent URL for the user. The state
// brings the user back to the organization after consent.
func (s *googleClassroomServiceImpl) AuthorizationURL(_ context.Context, userID int64, org *models.Organization) (string, error) {
	if s.client == nil {
		return "", apperrors.ErrResourceNotFound
	}
	state, err := s.signer.GenerateStateToken(userID, org.Slug)
	if err != nil {
		return "", err
	}
	return s.client.AuthCodeURL(state), nil
}

// authorizationRequired builds the error carrying the consent URL
func (s *googleClassroomServiceImpl) authorizationRequired(ctx context.Context, userID int64, org *models.Organization) error {
	url, err := s.AuthorizationURL(ctx, userID, org)
	if err != nil {
		return err
	}
	return apperrors.NewCustomError(apperrors.ErrGoogleAuthorizationRequired, "Google Classroom authorization required").
		WithDetails(map[string]interface{}{"authorizationUrl": url})
}

// HandleCallback stores the token of the user named in state
func (s *googleClassroomServiceImpl) HandleCallback(ctx context.Context, code, state string) (*dto.ActionResponse, error) {
	if s.client == nil {
		return nil, apperrors.ErrResourceNotFound
	}
	claims, err := s.signer.ParseStateToken(state)
	if err != nil {
		return nil, apperrors.NewCustomError(apperrors.ErrTokenInvalid, "Invalid OAuth state")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.NewBadRequestError("Missing authorization code")
	}

	token, err := s.client.Exchange(ctx, code)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("userID", claims.UserID).Msg("Google code exchange failed")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalService, err)
	}

	if err := s.storeToken(ctx, claims.UserID, token); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, courseCacheKey(claims.UserID)); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to invalidate course cache")
	}

	return &dto.ActionResponse{
		Flash:    dto.Flash{Level: dto.FlashSuccess, Message: msgGoogleConnected},
		Redirect: GoogleClassroomPath(claims.Organization),
	}, nil
}

func (s *googleClassroomServiceImpl) storeToken(ctx context.Context, userID int64, token *oauth2.Token) error {
	credential := &models.GoogleCredential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: helpers.NullableString(token.RefreshToken),
		TokenType:    helpers.NullableString(token.TokenType),
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		credential.Expiry = &expiry
	}
	return s.credentials.Upsert(ctx, credential)
}

// token loads the user's stored token, or an authorization-required error
func (s *googleClassroomServiceImpl) token(ctx context.Context, userID int64, org *models.Organization) (*oauth2.Token, error) {
	if s.client == nil {
		return nil, apperrors.ErrResourceNotFound
	}
	credential, err := s.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrGoogleAuthorizationRequired) {
			return nil, s.authorizationRequired(ctx, userID, org)
		}
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  credential.AccessToken,
		RefreshToken: helpers.StringValue(credential.RefreshToken),
		TokenType:    helpers.StringValue(credential.TokenType),
	}
	if credential.Expiry != nil {
		token.Expiry = *credential.Expiry
	}
	return token, nil
}

// refreshed persists token when the client had to refresh it
func (s *googleClassroomServiceImpl) refreshed(ctx context.Context, userID int64, before, after *oauth2.Token) {
	if after == nil || after.AccessToken == before.AccessToken {
		return
	}
	if err := s.storeToken(ctx, userID, after); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("userID", userID).Msg("Failed to store refreshed Google token")
	}
}

// clientError maps client failures onto application errors
func (s *googleClassroomServiceImpl) clientError(ctx context.Context, userID int64, org *models.Organization, err error) error {
	switch {
	case errors.Is(err, googleclassroom.ErrUnauthorized):
		return s.authorizationRequired(ctx, userID, org)
	case errors.Is(err, googleclassroom.ErrCourseNotFound):
		return apperrors.NewResourceNotFoundError("Google Classroom course not found")
	default:
		logger.FromContext(ctx).Error().Err(err).Int64("userID", userID).Msg("Google Classroom request failed")
		return fmt.Errorf("%w: %v", apperrors.ErrExternalService, err)
	}
}

// allCourses returns every course of the user, from cache when possible
func (s *googleClassroomServiceImpl) allCourses(ctx context.Context, userID int64, org *models.Organization) ([]googleclassroom.Course, error) {
	token, err := s.token(ctx, userID, org)
	if err != nil {
		return nil, err
	}

	var courses []googleclassroom.Course
	found, err := s.cache.GetJSON(ctx, courseCacheKey(userID), &courses)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Course cache lookup failed")
	}
	if found {
		return courses, nil
	}

	courses, current, err := s.client.ListCourses(ctx, token)
	if err != nil {
		return nil, s.clientError(ctx, userID, org, err)
	}
	s.refreshed(ctx, userID, token, current)

	if err := s.cache.SetJSON(ctx, courseCacheKey(userID), courses, s.cacheTTL); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to cache courses")
	}
	return courses, nil
}

func coursePage(courses []googleclassroom.Course, page int) *dto.GoogleCourseListResponse {
	pageCourses, pagination := helpers.Paginate(courses, page, GoogleCoursesPerPage)
	out := make([]dto.GoogleCourseResponse, 0, len(pageCourses))
	for _, c := range pageCourses {
		out = append(out, dto.GoogleCourseResponse{ID: c.ID, Name: c.Name, Section: c.Section})
	}
	return &dto.GoogleCourseListResponse{Courses: out, Pagination: pagination}
}

// ListCourses returns one page of the user's courses
func (s *googleClassroomServiceImpl) ListCourses(ctx context.Context, userID int64, org *models.Organization, page int) (*dto.GoogleCourseListResponse, error) {
	courses, err := s.allCourses(ctx, userID, org)
	if err != nil {
		return nil, err
	}
	return coursePage(courses, page), nil
}

// SearchCourses pages the courses whose name contains query, ignoring case
func (s *googleClassroomServiceImpl) SearchCourses(ctx context.Context, userID int64, org *models.Organization, query string, page int) (*dto.GoogleCourseListResponse, error) {
	courses, err := s.allCourses(ctx, userID, org)
	if err != nil {
		return nil, err
	}
	return coursePage(filterCourses(courses, query), page), nil
}

func filterCourses(courses []googleclassroom.Course, query string) []googleclassroom.Course {
	needle := strings.ToLower(strings.TrimSpace(query))
	matched := make([]googleclassroom.Course, 0, len(courses))
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			matched = append(matched, c)
		}
	}
	return matched
}

// ImportCourse creates the organization's roster from the course's students
// and remembers the course on the organization. A course without students
// changes nothing.
func (s *googleClassroomServiceImpl) ImportCourse(ctx context.Context, userID int64, org *models.Organization, courseID string) (*dto.ActionResponse, error) {
	if org.HasRoster() {
		return nil, apperrors.ErrRosterAlreadyExists
	}

	token, err := s.token(ctx, userID, org)
	if err != nil {
		return nil, err
	}

	students, current, err := s.client.ListStudents(ctx, token, courseID)
	if err != nil {
		metrics.GoogleImportsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, s.clientError(ctx, userID, org, err)
	}
	s.refreshed(ctx, userID, token, current)

	if len(students) == 0 {
		metrics.GoogleImportsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return &dto.ActionResponse{
			Flash:    dto.Flash{Level: dto.FlashWarning, Message: msgNoGoogleStudents},
			Redirect: OrganizationPath(org.Slug),
		}, nil
	}

	identifiers := make([]string, 0, len(students))
	googleIDs := make([]string, 0, len(students))
	for _, st := range students {
		identifiers = append(identifiers, studentIdentifier(st))
		googleIDs = append(googleIDs, st.UserID)
	}

	roster, err := buildRoster(models.DefaultIdentifierName, identifiers, googleIDs)
	if err != nil {
		return nil, err
	}
	if err := s.rosters.CreateForOrganization(ctx, org.ID, roster, &courseID); err != nil {
		metrics.GoogleImportsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.GoogleImportsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	logger.FromContext(ctx).Info().
		Int64("organizationID", org.ID).
		Str("courseID", courseID).
		Int("students", len(students)).
		Msg("Google Classroom course imported")
	return rosterCreated(org, roster, sourceGoogle), nil
}

// studentIdentifier prefers the full name, then email, then the Google id
func studentIdentifier(st googleclassroom.Student) string {
	for _, candidate := range []string{st.FullName, st.Email, st.UserID} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return unknownStudent
}
