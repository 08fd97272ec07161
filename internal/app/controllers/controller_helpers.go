package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/middleware"
)

// organizationFromContext returns the organization resolved by the
// organization middleware, answering 500 when the route was wired without it.
func organizationFromContext(ctx *gin.Context) (*models.Organization, bool) {
	org, ok := middleware.CurrentOrganization(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithDetails("Organization missing from request context")
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return org, true
}

func userIDFromContext(ctx *gin.Context) (int64, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return userID, true
}

// parseIDParam reads a positive integer path parameter
func parseIDParam(ctx *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label+" ID").
			WithField(name).
			WithDetails(label + " ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// respondAction writes the result of a state changing operation
func respondAction(ctx *gin.Context, status int, resp *dto.ActionResponse) {
	ctx.JSON(status, dto.NewSuccessResponse(resp, resp.Flash.Message))
}
