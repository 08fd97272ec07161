package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// RosterController handles the roster of an organization
type RosterController struct {
	rosterService services.RosterService
}

// NewRosterController creates a new RosterController
func NewRosterController(rosterService services.RosterService) *RosterController {
	return &RosterController{
		rosterService: rosterService,
	}
}

// GetRoster shows the roster or downloads it as CSV
// @Summary Get the organization roster
// @Description Returns a page of roster entries ordered by identifier and a page of unlinked users. With format=csv the whole roster is downloaded.
// @Tags roster
// @Produce json,text/csv
// @Param organization_id path string true "Organization slug"
// @Param roster_entries_page query int false "Entries page (default: 1)"
// @Param unlinked_users_page query int false "Unlinked users page (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Param grouping query int false "Grouping ID used for group names"
// @Param format query string false "Set to csv to download the roster"
// @Success 200 {object} dto.APIResponse{data=dto.RosterResponse} "Roster retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Roster or grouping not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster [get]
func (c *RosterController) GetRoster(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}

	var query dto.RosterQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	if query.Format == "csv" {
		file, err := c.rosterService.ExportCSV(ctx.Request.Context(), org, query.GroupingID)
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
		ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		ctx.Data(http.StatusOK, "text/csv; charset=utf-8", file.Content)
		return
	}

	roster, err := c.rosterService.GetRoster(ctx.Request.Context(), org, &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(roster, "Roster retrieved successfully"))
}

// CreateRoster creates the organization roster
// @Summary Create the organization roster
// @Description Creates a roster from newline separated identifiers and attaches it to the organization
// @Tags roster
// @Accept json
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param request body dto.CreateRosterRequest true "Roster identifiers"
// @Success 201 {object} dto.APIResponse{data=dto.ActionResponse} "Roster created"
// @Failure 400 {object} dto.ErrorResponse "Invalid identifiers"
// @Failure 409 {object} dto.ErrorResponse "Organization already has a roster"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster [post]
func (c *RosterController) CreateRoster(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}

	var req dto.CreateRosterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.rosterService.CreateRoster(ctx.Request.Context(), org, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusCreated, resp)
}

// AddStudents adds identifiers to the roster
// @Summary Add students to the roster
// @Description Adds newline separated identifiers, omitting those already on the roster
// @Tags roster
// @Accept json
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param request body dto.AddStudentsRequest true "Identifiers to add"
// @Success 201 {object} dto.APIResponse{data=dto.ActionResponse} "Students processed"
// @Failure 400 {object} dto.ErrorResponse "Invalid identifiers"
// @Failure 404 {object} dto.ErrorResponse "Roster not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/entries [post]
func (c *RosterController) AddStudents(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}

	var req dto.AddStudentsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.rosterService.AddStudents(ctx.Request.Context(), org, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusCreated, resp)
}

// LinkEntry links a roster entry to an unlinked user
// @Summary Link a roster entry
// @Tags roster
// @Accept json
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param roster_entry_id path int true "Roster entry ID"
// @Param request body dto.LinkRequest true "User to link"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Entry linked"
// @Failure 404 {object} dto.ErrorResponse "Roster entry not found"
// @Failure 409 {object} dto.ErrorResponse "User already linked"
// @Failure 422 {object} dto.ErrorResponse "User is not unlinked"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/entries/{roster_entry_id}/link [patch]
func (c *RosterController) LinkEntry(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	entryID, ok := parseIDParam(ctx, "roster_entry_id", "roster entry")
	if !ok {
		return
	}

	var req dto.LinkRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.rosterService.LinkEntry(ctx.Request.Context(), org, entryID, req.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusOK, resp)
}

// UnlinkEntry removes the user from a roster entry
// @Summary Unlink a roster entry
// @Tags roster
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param roster_entry_id path int true "Roster entry ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Entry unlinked"
// @Failure 404 {object} dto.ErrorResponse "Roster entry not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/entries/{roster_entry_id}/unlink [patch]
func (c *RosterController) UnlinkEntry(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	entryID, ok := parseIDParam(ctx, "roster_entry_id", "roster entry")
	if !ok {
		return
	}

	resp, err := c.rosterService.UnlinkEntry(ctx.Request.Context(), org, entryID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusOK, resp)
}

// DeleteEntry removes a student from the roster
// @Summary Delete a roster entry
// @Description Refused when the entry is the last one of the roster
// @Tags roster
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param roster_entry_id path int true "Roster entry ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Entry deleted"
// @Failure 404 {object} dto.ErrorResponse "Roster entry not found"
// @Failure 422 {object} dto.ErrorResponse "Last roster entry"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster/entries/{roster_entry_id} [delete]
func (c *RosterController) DeleteEntry(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	entryID, ok := parseIDParam(ctx, "roster_entry_id", "roster entry")
	if !ok {
		return
	}

	resp, err := c.rosterService.DeleteEntry(ctx.Request.Context(), org, entryID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusOK, resp)
}

// RemoveRoster detaches the roster from the organization
// @Summary Remove the organization roster
// @Tags roster
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Success 200 {object} dto.APIResponse{data=dto.ActionResponse} "Roster removed"
// @Failure 404 {object} dto.ErrorResponse "Roster not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/roster [delete]
func (c *RosterController) RemoveRoster(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}

	resp, err := c.rosterService.RemoveRoster(ctx.Request.Context(), org)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondAction(ctx, http.StatusOK, resp)
}
