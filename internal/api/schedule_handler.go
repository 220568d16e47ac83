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

// ScheduleHandler serves allocation booking and the schedule views.
type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// --- DTOs for API (Data Transfer Objects) ---

// AllocateRequest books one template into one (slot, date).
type AllocateRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
	SlotID     string `json:"slotId" binding:"required"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
}

// BulkAllocateRequest books one template into every free active slot of a day.
type BulkAllocateRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
}

// AllocationResponse is the DTO for returning allocations.
type AllocationResponse struct {
	ID          string    `json:"id"`
	TemplateID  string    `json:"templateId"`
	SlotID      string    `json:"slotId"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	AssignedBy  string    `json:"assignedBy,omitempty"`
	ExecutionID string    `json:"executionId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BatchAllocationResponse reports what a bulk booking actually did.
type BatchAllocationResponse struct {
	Created        []AllocationResponse `json:"created"`
	SkippedSlotIDs []string             `json:"skippedSlotIds"`
	FullyApplied   bool                 `json:"fullyApplied"`
}

// MapAllocationToResponse converts a domain.Allocation to AllocationResponse DTO.
func MapAllocationToResponse(a *domain.Allocation) AllocationResponse {
	if a == nil {
		return AllocationResponse{}
	}
	resp := AllocationResponse{
		ID:         a.ID.Hex(),
		TemplateID: a.TemplateID.Hex(),
		SlotID:     a.SlotID.Hex(),
		Date:       string(a.Date),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.AssignedBy != primitive.NilObjectID {
		resp.AssignedBy = a.AssignedBy.Hex()
	}
	if a.ExecutionID != nil {
		resp.ExecutionID = a.ExecutionID.Hex()
	}
	return resp
}

// MapAllocationsToResponse converts a slice of domain.Allocation to DTOs.
func MapAllocationsToResponse(allocations []domain.Allocation) []AllocationResponse {
	responses := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		responses[i] = MapAllocationToResponse(&allocations[i])
	}
	return responses
}

// parseDateQuery reads a YYYY-MM-DD query parameter. Missing or malformed
// values abort the request with 400 and return ok=false.
func parseDateQuery(c *gin.Context, key string) (domain.Date, bool) {
	raw := c.Query(key)
	if raw == "" {
		abortWithError(c, http.StatusBadRequest, "Missing required query parameter: "+key)
		return "", false
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+key+" date, expected YYYY-MM-DD.")
		return "", false
	}
	return date, true
}

// --- Handler Methods ---

// CreateAllocation godoc
// @Summary Book a template into a slot on a date
// @Description Creates a scheduled allocation. Each (slot, date) pair holds at most one active allocation; a second booking is rejected with 409.
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param allocation body AllocateRequest true "Booking details"
// @Success 201 {object} AllocationResponse "Allocation created"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Template or slot not found"
// @Failure 409 {object} gin.H "Slot already booked for that date"
// @Router /allocations [post]
func (h *ScheduleHandler) CreateAllocation(c *gin.Context) {
	var req AllocateRequest
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

	staffID, err := getStaffIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller from token.")
		return
	}

	allocation, err := h.scheduleService.Allocate(c.Request.Context(), templateID, slotID, date, staffID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, "Template not found.")
		case errors.Is(err, service.ErrSlotNotFound):
			abortWithError(c, http.StatusNotFound, "Slot not found.")
		case errors.Is(err, service.ErrSlotConflict):
			abortWithError(c, http.StatusConflict, "Slot is already booked for that date.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create allocation.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapAllocationToResponse(allocation))
}

// CreateBulkAllocation godoc
// @Summary Book a template into every free slot of a day
// @Description Books the template into each active slot that has no active allocation on the date. Already-booked slots are skipped, not overwritten.
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param allocation body BulkAllocateRequest true "Bulk booking details"
// @Success 201 {object} BatchAllocationResponse "What was created and what was skipped"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Template not found"
// @Router /allocations/bulk [post]
func (h *ScheduleHandler) CreateBulkAllocation(c *gin.Context) {
	var req BulkAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return
	}

	staffID, err := getStaffIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller from token.")
		return
	}

	result, err := h.scheduleService.AllocateToAllSlots(c.Request.Context(), templateID, date, staffID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, "Template not found.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create allocations.")
		}
		return
	}

	skipped := make([]string, len(result.SkippedSlotIDs))
	for i, id := range result.SkippedSlotIDs {
		skipped[i] = id.Hex()
	}
	c.JSON(http.StatusCreated, BatchAllocationResponse{
		Created:        MapAllocationsToResponse(result.Created),
		SkippedSlotIDs: skipped,
		FullyApplied:   result.FullyApplied(),
	})
}

// GetAllocation godoc
// @Summary Get one allocation
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path string true "Allocation ID"
// @Success 200 {object} AllocationResponse
// @Failure 404 {object} gin.H "Not found"
// @Router /allocations/{id} [get]
func (h *ScheduleHandler) GetAllocation(c *gin.Context) {
	allocationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid allocation ID format.")
		return
	}

	allocation, err := h.scheduleService.GetByID(c.Request.Context(), allocationID)
	if err != nil {
		if errors.Is(err, service.ErrAllocationNotFound) {
			abortWithError(c, http.StatusNotFound, "Allocation not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve allocation.")
		}
		return
	}
	c.JSON(http.StatusOK, MapAllocationToResponse(allocation))
}

// CancelAllocation godoc
// @Summary Cancel a scheduled allocation
// @Description Cancels the booking and frees the (slot, date) pair for another template. Executed allocations cannot be cancelled; cancelling twice is a no-op.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path string true "Allocation ID"
// @Success 204 "Cancelled"
// @Failure 404 {object} gin.H "Not found"
// @Failure 409 {object} gin.H "Allocation already executed"
// @Router /allocations/{id} [delete]
func (h *ScheduleHandler) CancelAllocation(c *gin.Context) {
	allocationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid allocation ID format.")
		return
	}

	err = h.scheduleService.Cancel(c.Request.Context(), allocationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAllocationNotFound):
			abortWithError(c, http.StatusNotFound, "Allocation not found.")
		case errors.Is(err, service.ErrAllocationExecuted):
			abortWithError(c, http.StatusConflict, "Allocation was already executed and cannot be cancelled.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to cancel allocation.")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetScheduleForDate godoc
// @Summary Get the schedule for one day
// @Description Returns every allocation (any status) on the date.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {array} AllocationResponse
// @Failure 400 {object} gin.H "Invalid date"
// @Router /schedule/{date} [get]
func (h *ScheduleHandler) GetScheduleForDate(c *gin.Context) {
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return
	}

	allocations, err := h.scheduleService.ListByDate(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve schedule.")
		}
		return
	}
	c.JSON(http.StatusOK, MapAllocationsToResponse(allocations))
}

// GetScheduleRange godoc
// @Summary Get the schedule for a date range
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param from query string true "Range start (YYYY-MM-DD, inclusive)"
// @Param to query string true "Range end (YYYY-MM-DD, inclusive)"
// @Success 200 {array} AllocationResponse
// @Failure 400 {object} gin.H "Invalid range"
// @Router /schedule [get]
func (h *ScheduleHandler) GetScheduleRange(c *gin.Context) {
	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	allocations, err := h.scheduleService.ListRange(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve schedule.")
		}
		return
	}
	c.JSON(http.StatusOK, MapAllocationsToResponse(allocations))
}
