package api

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExecutionHandler serves the run-history endpoints. History is append-only:
// the only write is recording, and mutation routes answer 405.
type ExecutionHandler struct {
	executionService service.ExecutionService
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(executionService service.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executionService: executionService}
}

// --- DTOs for API (Data Transfer Objects) ---

// RecordExecutionRequest defines the expected JSON for recording a run.
// InstructorID is optional; when absent the caller from the token is used.
type RecordExecutionRequest struct {
	TemplateID   string `json:"templateId" binding:"required"`
	SlotID       string `json:"slotId" binding:"required"`
	Date         string `json:"date" binding:"required"` // YYYY-MM-DD
	Notes        string `json:"notes"`
	InstructorID string `json:"instructorId"`
}

// ExecutionResponse is the DTO for returning executions. Snapshot is the
// plan content as it was at recording time, not the template's current state.
type ExecutionResponse struct {
	ID            string               `json:"id"`
	TemplateID    string               `json:"templateId"`
	TemplateName  string               `json:"templateName"`
	TemplateLevel string               `json:"templateLevel"`
	Snapshot      []PlanSectionPayload `json:"snapshot"`
	SlotID        string               `json:"slotId"`
	Date          string               `json:"date"`
	InstructorID  string               `json:"instructorId,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	MemberIDs     []string             `json:"memberIds"`
	AttendeeCount int                  `json:"attendeeCount"`
	RecordedAt    time.Time            `json:"recordedAt"`
}

// MapExecutionToResponse converts a domain.Execution to ExecutionResponse DTO.
func MapExecutionToResponse(e *domain.Execution) ExecutionResponse {
	if e == nil {
		return ExecutionResponse{}
	}
	members := make([]string, len(e.MemberIDs))
	for i, id := range e.MemberIDs {
		members[i] = id.Hex()
	}
	resp := ExecutionResponse{
		ID:            e.ID.Hex(),
		TemplateID:    e.TemplateID.Hex(),
		TemplateName:  e.TemplateName,
		TemplateLevel: string(e.TemplateLevel),
		Snapshot:      MapSectionsToPayload(e.Snapshot),
		SlotID:        e.SlotID.Hex(),
		Date:          string(e.Date),
		Notes:         e.Notes,
		MemberIDs:     members,
		AttendeeCount: e.AttendeeCount,
		RecordedAt:    e.RecordedAt,
	}
	if e.InstructorID != nil {
		resp.InstructorID = e.InstructorID.Hex()
	}
	return resp
}

// MapExecutionsToResponse converts a slice of domain.Execution to DTOs.
func MapExecutionsToResponse(executions []domain.Execution) []ExecutionResponse {
	responses := make([]ExecutionResponse, len(executions))
	for i := range executions {
		responses[i] = MapExecutionToResponse(&executions[i])
	}
	return responses
}

// parseOptionalDateQuery reads a YYYY-MM-DD query parameter that may be
// absent. A missing value yields the zero Date; a malformed one aborts 400.
func parseOptionalDateQuery(c *gin.Context, key string) (domain.Date, bool) {
	raw := c.Query(key)
	if raw == "" {
		return "", true
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+key+" date, expected YYYY-MM-DD.")
		return "", false
	}
	return date, true
}

// --- Handler Methods ---

// RecordExecution godoc
// @Summary Record that a class ran
// @Description Records a delivered class: snapshots the template content, captures attendance, and settles the matching allocation. One execution per (slot, date); a second attempt is rejected with 409.
// @Tags Executions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param execution body RecordExecutionRequest true "What ran, where and when"
// @Success 201 {object} ExecutionResponse "Execution recorded"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Template or slot not found"
// @Failure 409 {object} gin.H "Execution already recorded for that slot and date"
// @Router /executions [post]
func (h *ExecutionHandler) RecordExecution(c *gin.Context) {
	var req RecordExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}
	slotID, err := primitive.ObjectIDFromHex(req.SlotID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid slot ID format.")
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return
	}

	// Default the instructor to the caller unless one is named explicitly.
	var instructorID primitive.ObjectID
	if req.InstructorID != "" {
		instructorID, err = primitive.ObjectIDFromHex(req.InstructorID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid instructor ID format.")
			return
		}
	} else {
		instructorID, err = getStaffIDFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Unable to identify caller from token.")
			return
		}
	}

	execution, err := h.executionService.Record(c.Request.Context(), templateID, slotID, date, &instructorID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, "Template not found.")
		case errors.Is(err, service.ErrSlotNotFound):
			abortWithError(c, http.StatusNotFound, "Slot not found.")
		case errors.Is(err, service.ErrDuplicateExecution):
			abortWithError(c, http.StatusConflict, "An execution is already recorded for that slot and date.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to record execution.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapExecutionToResponse(execution))
}

// GetExecution godoc
// @Summary Get one execution
// @Tags Executions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Execution ID"
// @Success 200 {object} ExecutionResponse
// @Failure 404 {object} gin.H "Not found"
// @Router /executions/{id} [get]
func (h *ExecutionHandler) GetExecution(c *gin.Context) {
	executionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid execution ID format.")
		return
	}

	execution, err := h.executionService.GetByID(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, service.ErrExecutionNotFound) {
			abortWithError(c, http.StatusNotFound, "Execution not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve execution.")
		}
		return
	}
	c.JSON(http.StatusOK, MapExecutionToResponse(execution))
}

// ListExecutions godoc
// @Summary List executions
// @Description Lists run history, optionally bounded by from/to dates (inclusive). Either bound may be omitted.
// @Tags Executions
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {array} ExecutionResponse
// @Failure 400 {object} gin.H "Invalid range"
// @Router /executions [get]
func (h *ExecutionHandler) ListExecutions(c *gin.Context) {
	from, ok := parseOptionalDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseOptionalDateQuery(c, "to")
	if !ok {
		return
	}

	executions, err := h.executionService.ListRange(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve executions.")
		}
		return
	}
	c.JSON(http.StatusOK, MapExecutionsToResponse(executions))
}

// GetMemberExecutions godoc
// @Summary List the classes a member attended
// @Tags Executions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Success 200 {array} ExecutionResponse
// @Router /members/{id}/executions [get]
func (h *ExecutionHandler) GetMemberExecutions(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid member ID format.")
		return
	}

	executions, err := h.executionService.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve executions.")
		}
		return
	}
	c.JSON(http.StatusOK, MapExecutionsToResponse(executions))
}

// RejectMutation godoc
// @Summary Reject edits to recorded history
// @Description Executions are append-only. Any PUT, PATCH or DELETE on an execution answers 405.
// @Tags Executions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Execution ID"
// @Failure 405 {object} gin.H "History is immutable"
// @Router /executions/{id} [put]
func (h *ExecutionHandler) RejectMutation(c *gin.Context) {
	abortWithError(c, http.StatusMethodNotAllowed, service.ErrExecutionImmutable.Error())
}
