package googleclassroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/classroom/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client errors
var (
	// ErrUnauthorized means the stored token was revoked or lacks scopes
	ErrUnauthorized = errors.New("google classroom: authorization required")
	// ErrCourseNotFound means the course does not exist or is not visible
	ErrCourseNotFound = errors.New("google classroom: course not found")
)

// Scopes requested from the instructor
var Scopes = []string{
	classroom.ClassroomCoursesReadonlyScope,
	classroom.ClassroomRostersReadonlyScope,
	classroom.ClassroomProfileEmailsScope,
}

// Config holds the OAuth client settings
type Config struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	ApplicationName string
}

// Course is a Google Classroom course taught by the user
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
}

// Student is a member of a course
type Student struct {
	UserID   string
	FullName string
	Email    string
}

// Client talks to the Google Classroom API on behalf of a user
type Client struct {
	oauth   *oauth2.Config
	appName string
	opts    []option.ClientOption
}

// NewClient creates a new Client
func NewClient(cfg Config, opts ...option.ClientOption) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		appName: cfg.ApplicationName,
		opts:    opts,
	}
}

// AuthCodeURL returns the consent page URL carrying state
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return token, nil
}

// session is a classroom service bound to a refreshing token source
type session struct {
	svc *classroom.Service
	ts  oauth2.TokenSource
}

func (c *Client) newSession(ctx context.Context, token *oauth2.Token) (*session, error) {
	ts := c.oauth.TokenSource(ctx, token)
	opts := append([]option.ClientOption{
		option.WithTokenSource(ts),
		option.WithUserAgent(c.appName),
	}, c.opts...)

	svc, err := classroom.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom service: %w", err)
	}
	return &session{svc: svc, ts: ts}, nil
}

// current returns the token in use after the calls, which may have been refreshed
func (s *session) current(fallback *oauth2.Token) *oauth2.Token {
	token, err := s.ts.Token()
	if err != nil {
		return fallback
	}
	return token
}

// ListCourses returns the active courses the user teaches, and the token to persist
func (c *Client) ListCourses(ctx context.Context, token *oauth2.Token) ([]Course, *oauth2.Token, error) {
	s, err := c.newSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	courses := []Course{}
	err = s.svc.Courses.List().
		TeacherId("me").
		CourseStates("ACTIVE").
		PageSize(100).
		Pages(ctx, func(resp *classroom.ListCoursesResponse) error {
			for _, course := range resp.Courses {
				courses = append(courses, Course{ID: course.Id, Name: course.Name, Section: course.Section})
			}
			return nil
		})
	if err != nil {
		return nil, nil, translate(err)
	}
	return courses, s.current(token), nil
}

// GetCourse fetches one course
func (c *Client) GetCourse(ctx context.Context, token *oauth2.Token, courseID string) (*Course, *oauth2.Token, error) {
	s, err := c.newSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	course, err := s.svc.Courses.Get(courseID).Context(ctx).Do()
	if err != nil {
		return nil, nil, translate(err)
	}
	return &Course{ID: course.Id, Name: course.Name, Section: course.Section}, s.current(token), nil
}

// ListStudents returns every student of the course
func (c *Client) ListStudents(ctx context.Context, token *oauth2.Token, courseID string) ([]Student, *oauth2.Token, error) {
	s, err := c.newSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	students := []Student{}
	err = s.svc.Courses.Students.List(courseID).
		PageSize(100).
		Pages(ctx, func(resp *classroom.ListStudentsResponse) error {
			for _, st := range resp.Students {
				student := Student{UserID: st.UserId}
				if st.Profile != nil {
					student.Email = st.Profile.EmailAddress
					if st.Profile.Name != nil {
						student.FullName = st.Profile.Name.FullName
					}
				}
				students = append(students, student)
			}
			return nil
		})
	if err != nil {
		return nil, nil, translate(err)
	}
	return students, s.current(token), nil
}

// translate maps API failures onto the package errors
func translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrCourseNotFound, err)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return fmt.Errorf("google classroom request failed: %w", err)
}
