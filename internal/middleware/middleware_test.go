package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "classroom.test",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWTService()
	router := gin.New()
	router.GET("/me", NewAuthMiddleware(jwtService).JWTAuth(), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "login": c.GetString(ContextLogin)})
	})

	token, _, err := jwtService.GenerateAccessToken(&models.User{ID: 7, Login: "octocat"})
	require.NoError(t, err)
	state, err := jwtService.GenerateStateToken(7, "intro-to-cs")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK, ""},
		{"quoted raw token", `"` + token + `"`, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"oauth state token", "Bearer " + state, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
				return
			}
			assert.JSONEq(t, `{"id":7,"login":"octocat"}`, w.Body.String())
		})
	}
}

type stubOrganizations struct {
	org     *models.Organization
	members map[int64]bool
}

func (s *stubOrganizations) GetBySlug(_ context.Context, slug string) (*models.Organization, error) {
	if s.org == nil || s.org.Slug != slug {
		return nil, apperrors.ErrOrganizationNotFound
	}
	return s.org, nil
}

func (s *stubOrganizations) IsMember(_ context.Context, _ int64, userID int64) (bool, error) {
	return s.members[userID], nil
}

func TestRequireInstructor(t *testing.T) {
	orgs := &stubOrganizations{
		org:     &models.Organization{ID: 1, Slug: "intro-to-cs"},
		members: map[int64]bool{7: true},
	}
	orgMiddleware := NewOrganizationMiddleware(orgs)

	newRouter := func(userID int64) *gin.Engine {
		router := gin.New()
		router.GET("/organizations/:organization_id",
			func(c *gin.Context) { c.Set(ContextUserID, userID) },
			orgMiddleware.RequireInstructor(),
			func(c *gin.Context) {
				org, ok := CurrentOrganization(c)
				require.True(t, ok)
				c.String(http.StatusOK, org.Slug)
			})
		return router
	}

	tests := []struct {
		name       string
		userID     int64
		slug       string
		wantStatus int
	}{
		{"instructor", 7, "intro-to-cs", http.StatusOK},
		{"not an instructor", 8, "intro-to-cs", http.StatusForbidden},
		{"unknown organization", 7, "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.userID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organizations/"+tt.slug, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestFeatureEnabled(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.GET("/roster", FeatureEnabled(enabled), func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roster", nil))
		if enabled {
			assert.Equal(t, http.StatusNoContent, w.Code)
		} else {
			assert.Equal(t, http.StatusNotFound, w.Code)
		}
	}
}

func TestHandleAPIError(t *testing.T) {
	org := &models.Organization{ID: 1, Slug: "intro-to-cs"}

	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     dto.ErrorCode
		wantRedirect bool
	}{
		{"last entry", apperrors.ErrLastRosterEntry, http.StatusUnprocessableEntity, dto.ErrorCodeLastRosterEntry, true},
		{"user not unlinked", apperrors.ErrUserNotUnlinked, http.StatusUnprocessableEntity, dto.ErrorCodeUserNotUnlinked, true},
		{"no roster", apperrors.ErrRosterNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, true},
		{"wrapped grouping", fmt.Errorf("lookup: %w", apperrors.ErrGroupingNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, false},
		{"roster exists", apperrors.ErrRosterAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, true},
		{"no identifiers", apperrors.ErrNoIdentifiers, http.StatusBadRequest, dto.ErrorCodeValidationFailed, false},
		{"google down", fmt.Errorf("%w: timeout", apperrors.ErrExternalService), http.StatusBadGateway, dto.ErrorCodeExternalServiceError, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			c.Set(ContextOrganization, org)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			details, _ := resp.Error.Details.(map[string]interface{})
			if tt.wantRedirect {
				assert.Equal(t, "/api/v1/organizations/intro-to-cs/roster", details["redirect"])
			} else {
				assert.NotContains(t, details, "redirect")
			}
		})
	}
}

func TestHandleAPIError_CustomErrorDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	err := apperrors.NewCustomError(apperrors.ErrGoogleAuthorizationRequired, "Connect Google first").
		WithDetails(map[string]interface{}{"authorizationUrl": "https://accounts.google.com/o/oauth2/auth"})
	HandleAPIError(c, err)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrorCodeGoogleAuthRequired, resp.Error.Code)
	assert.Equal(t, "Connect Google first", resp.Error.Message)
	assert.Equal(t, map[string]interface{}{"authorizationUrl": "https://accounts.google.com/o/oauth2/auth"}, resp.Error.Details)
}

func TestRecoveryAndRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(), Recovery(), Metrics())
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, dto.ErrorCodeInternalServer, decodeError(t, w).Error.Code)
}

type identifiersBody struct {
	Identifiers string `json:"identifiers" binding:"required,identifiers"`
}

func TestBindJSON_CustomValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var body identifiersBody
		if !BindJSON(c, &body) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	for body, want := range map[string]int{
		`{"identifiers":"alice\nbob"}`: http.StatusNoContent,
		`{"identifiers":"\n  \n"}`:     http.StatusBadRequest,
		`{}`:                           http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, body)
	}
}
