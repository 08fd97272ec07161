package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/logger"
	"github.com/yigit/classroom/internal/pkg/reporting"
)

// apiError describes how one class of errors is answered
type apiError struct {
	status  int
	code    dto.ErrorCode
	message string
	// redirect to the roster page when the organization is known
	toRoster bool
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, apperrors.ErrRosterNotFound):
		return apiError{http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Roster not found", true}
	case apperrors.Is(err, apperrors.ErrRosterEntryNotFound):
		return apiError{http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Roster entry not found", true}
	case apperrors.Is(err, apperrors.ErrOrganizationNotFound, apperrors.ErrAssignmentNotFound,
		apperrors.ErrGroupingNotFound, apperrors.ErrUserNotFound, apperrors.ErrResourceNotFound):
		return apiError{http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found", false}
	case errors.Is(err, apperrors.ErrLastRosterEntry):
		return apiError{http.StatusUnprocessableEntity, dto.ErrorCodeLastRosterEntry, "You cannot delete the last member of your roster!", true}
	case errors.Is(err, apperrors.ErrUserNotUnlinked):
		return apiError{http.StatusUnprocessableEntity, dto.ErrorCodeUserNotUnlinked, "User is not an unlinked student of this organization", true}
	case errors.Is(err, apperrors.ErrRosterAlreadyExists):
		return apiError{http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Organization already has a roster", true}
	case apperrors.Is(err, apperrors.ErrUserAlreadyLinked, apperrors.ErrConflict, apperrors.ErrResourceAlreadyExists):
		return apiError{http.StatusConflict, dto.ErrorCodeConflict, "Conflict", true}
	case apperrors.Is(err, apperrors.ErrNoIdentifiers, apperrors.ErrInvalidIdentifier, apperrors.ErrValidationFailed):
		return apiError{http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed", false}
	case errors.Is(err, apperrors.ErrBadRequest):
		return apiError{http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request", false}
	case errors.Is(err, apperrors.ErrGoogleAuthorizationRequired):
		return apiError{http.StatusUnauthorized, dto.ErrorCodeGoogleAuthRequired, "Google Classroom authorization required", false}
	case apperrors.Is(err, apperrors.ErrTokenExpired, auth.ErrExpiredToken):
		return apiError{http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired", false}
	case apperrors.Is(err, apperrors.ErrTokenInvalid, auth.ErrInvalidToken):
		return apiError{http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token", false}
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return apiError{http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied", false}
	case errors.Is(err, apperrors.ErrExternalService):
		return apiError{http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "External service unavailable", false}
	default:
		return apiError{http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error", false}
	}
}

// HandleAPIError writes the error response for err. Messages and details of
// apperrors.CustomError are passed through; unexpected errors are logged and
// reported.
func HandleAPIError(c *gin.Context, err error) {
	ae := classify(err)

	message := ae.message
	var details map[string]interface{}
	var customErr *apperrors.CustomError
	if errors.As(err, &customErr) {
		if customErr.Message != "" {
			message = customErr.Message
		}
		for k, v := range customErr.Details {
			if details == nil {
				details = make(map[string]interface{}, len(customErr.Details)+1)
			}
			details[k] = v
		}
	}

	if ae.toRoster {
		if org, ok := CurrentOrganization(c); ok {
			if details == nil {
				details = make(map[string]interface{}, 1)
			}
			details["redirect"] = services.RosterPath(org.Slug)
		}
	}

	errorDetail := dto.NewErrorDetail(ae.code, message)
	if details != nil {
		errorDetail.WithDetails(details)
	}

	l := logger.FromContext(c.Request.Context())
	switch {
	case ae.status >= http.StatusInternalServerError && ae.status != http.StatusBadGateway:
		errorDetail.WithSeverity(dto.ErrorSeverityCritical)
		l.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		reporting.ReportRequestError(c.Request, err, map[string]interface{}{"route": c.FullPath()})
	case ae.status == http.StatusBadGateway:
		l.Warn().Err(err).Str("path", c.FullPath()).Msg("External service error")
	default:
		errorDetail.WithSeverity(dto.ErrorSeverityWarning)
		l.Debug().Err(err).Int("status", ae.status).Msg("Request rejected")
	}

	c.JSON(ae.status, dto.NewErrorResponse(errorDetail))
}
