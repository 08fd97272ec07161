package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// ContextOrganization holds the organization resolved from the path
const ContextOrganization = "organization"

// OrganizationFinder loads organizations and checks membership
type OrganizationFinder interface {
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	IsMember(ctx context.Context, organizationID, userID int64) (bool, error)
}

// OrganizationMiddleware restricts organization routes to its instructors
type OrganizationMiddleware struct {
	organizations OrganizationFinder
}

// NewOrganizationMiddleware creates a new OrganizationMiddleware
func NewOrganizationMiddleware(organizations OrganizationFinder) *OrganizationMiddleware {
	return &OrganizationMiddleware{organizations: organizations}
}

// RequireInstructor loads the :organization_id organization and aborts unless
// the authenticated user is one of its instructors. Must run after JWTAuth.
func (m *OrganizationMiddleware) RequireInstructor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		org, err := m.organizations.GetBySlug(c.Request.Context(), c.Param("organization_id"))
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		member, err := m.organizations.IsMember(c.Request.Context(), org.ID, userID)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		if !member {
			HandleAPIError(c, apperrors.ErrPermissionDenied)
			c.Abort()
			return
		}

		c.Set(ContextOrganization, org)
		c.Next()
	}
}

// CurrentOrganization returns the organization set by RequireInstructor
func CurrentOrganization(c *gin.Context) (*models.Organization, bool) {
	v, ok := c.Get(ContextOrganization)
	if !ok {
		return nil, false
	}
	org, ok := v.(*models.Organization)
	return org, ok
}

// FeatureEnabled hides the routes behind a disabled feature flag
func FeatureEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}
