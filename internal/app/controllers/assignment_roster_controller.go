package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// AssignmentRosterController shows the roster against one assignment
type AssignmentRosterController struct {
	assignmentRosterService services.AssignmentRosterService
}

// NewAssignmentRosterController creates a new AssignmentRosterController
func NewAssignmentRosterController(assignmentRosterService services.AssignmentRosterService) *AssignmentRosterController {
	return &AssignmentRosterController{
		assignmentRosterService: assignmentRosterService,
	}
}

// GetAssignmentRoster lists roster entries ordered for the assignment
// @Summary Get the roster of an assignment
// @Description Entries whose user accepted the assignment come first, then other linked entries, then unlinked ones
// @Tags assignments
// @Produce json
// @Param organization_id path string true "Organization slug"
// @Param assignment_id path int true "Assignment ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentRosterResponse} "Assignment roster retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "Assignment or roster not found"
// @Security BearerAuth
// @Router /organizations/{organization_id}/assignments/{assignment_id}/roster [get]
func (c *AssignmentRosterController) GetAssignmentRoster(ctx *gin.Context) {
	org, ok := organizationFromContext(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignment_id", "assignment")
	if !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)

	roster, err := c.assignmentRosterService.GetAssignmentRoster(ctx.Request.Context(), org, assignmentID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(roster, "Assignment roster retrieved successfully"))
}
