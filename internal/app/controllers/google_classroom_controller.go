package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// GoogleClassroomController imports Google Classroom courses
type GoogleClassroomController struct {
	googleService services.GoogleClassroomService
}

// NewGoogleClassroomController creates a new GoogleClassroomController
func NewGoogleClassroomController(googleService services.GoogleClassroomService) *GoogleClassroomController {
	return &GoogleClassroomController{
		googleService: googleService,
	}
}

// Authorize returns the Google consent URL
// @Summary Get the Google authorization URL
// @Tags google-classroom
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Success 200 {object} dto.APIResponse{data=dto.GoogleAuthorizationResponse}
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/google_classroom/authorize [get]
func (c *GoogleClassroomController) Authorize(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	url, err := c.googleService.AuthorizationURL(ctx.Request.Context(), userID, org)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.GoogleAuthorizationResponse{AuthorizationURL: url}, ""))
}

// ListCourses lists the caller's Google Classroom courses
// @Summary List Google Classroom courses
// @Tags google-classroom
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param page query int false "Page number (default: 1)"
// @Success 200 {object} dto.APIResponse{data=dto.GoogleCourseListResponse}
// @Failure 401 {object} dto.ErrorResponse "Google authorization required; details carry authorizationUrl"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/google_classroom [get]
func (c *GoogleClassroomController) ListCourses(ctx *gin.Context) {
	c.courses(ctx, false)
}

// SearchCourses filters the caller's courses by name
// @Summary Search Google Classroom courses
// @Tags google-classroom
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param query query string false "Case-insensitive name filter"
// @Param page query int false "Page number (default: 1)"
// @Success 200 {object} dto.APIResponse{data=dto.GoogleCourseListResponse}
// @Failure 401 {object} dto.ErrorResponse "Google authorization required"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/google_classroom/search [get]
func (c *GoogleClassroomController) SearchCourses(ctx *gin.Context) {
	c.courses(ctx, true)
}

func (c *GoogleClassroomController) courses(ctx *gin.Context, search bool) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	var query dto.GoogleCourseQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	var (
		courses *dto.GoogleCourseListResponse
		err     error
	)
	if search {
		courses, err = c.googleService.SearchCourses(ctx.Request.Context(), userID, org, query.Query, query.Page)
	} else {
		courses, err = c.googleService.ListCourses(ctx.Request.Context(), userID, org, query.Page)
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}

// ImportCourse creates the roster from a course
// @Summary Import a Google Classroom course as the roster
// @Tags google-classroom
// @Accept json
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param request body dto.ImportGoogleCourseRequest true "Course to import"
// @Success 201 {object} dto.APIResponse{data=dto.ActionResponse} "Roster created"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Course has no students"
// @Failure 401 {object} dto.ErrorResponse "Google authorization required"
// @Failure 409 {object} dto.ErrorResponse "Organization already has a roster"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/google_classroom/import [post]
func (c *GoogleClassroomController) ImportCourse(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	var req dto.ImportGoogleCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.googleService.ImportCourse(ctx.Request.Context(), userID, org, req.CourseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	status := http.StatusCreated
	if resp.Flash.Level != dto.FlashSuccess {
		status = http.StatusOK
	}
	respondAction(ctx, status, resp)
}

// Callback finishes the Google OAuth flow
// @Summary Google OAuth callback
// @Tags google-classroom
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Signed state"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid state"
// @Router /google/callback [get]
func (c *GoogleClassroomController) Callback(ctx *gin.Context) {
	if errParam := ctx.Query("error"); errParam != "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Google authorization was denied").WithDetails(errParam)
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	resp, err := c.googleService.HandleCallback(ctx.Request.Context(), ctx.Query("code"), ctx.Query("state"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusOK, resp)
}
