package api

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogHandler serves the read-only reference data: the exercise catalog
// and the timetable slots.
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseResponse is the DTO for returning catalog entries.
type ExerciseResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	SanskritName     string   `json:"sanskritName,omitempty"`
	Description      string   `json:"description,omitempty"`
	Category         string   `json:"category"`
	Level            string   `json:"level"`
	PrimaryRegions   []string `json:"primaryRegions,omitempty"`
	SecondaryRegions []string `json:"secondaryRegions,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
	StepIDs          []string `json:"stepIds,omitempty"`
	IsActive         bool     `json:"isActive"`
}

// SlotResponse is the DTO for returning timetable slots.
type SlotResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StartTime   string `json:"startTime"`
	DurationMin int    `json:"durationMin"`
	IsActive    bool   `json:"isActive"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	resp := ExerciseResponse{
		ID:           ex.ID.Hex(),
		Name:         ex.Name,
		SanskritName: ex.SanskritName,
		Description:  ex.Description,
		Category:     string(ex.Category),
		Level:        string(ex.Level),
		Benefits:     ex.Benefits,
		IsActive:     ex.IsActive,
	}
	for _, r := range ex.PrimaryRegions {
		resp.PrimaryRegions = append(resp.PrimaryRegions, string(r))
	}
	for _, r := range ex.SecondaryRegions {
		resp.SecondaryRegions = append(resp.SecondaryRegions, string(r))
	}
	for _, id := range ex.StepIDs {
		resp.StepIDs = append(resp.StepIDs, id.Hex())
	}
	return resp
}

// MapExercisesToResponse converts a slice of domain.Exercise to DTOs.
func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(&exercises[i])
	}
	return responses
}

// MapSlotToResponse converts a domain.Slot to SlotResponse DTO.
func MapSlotToResponse(slot *domain.Slot) SlotResponse {
	if slot == nil {
		return SlotResponse{}
	}
	return SlotResponse{
		ID:          slot.ID.Hex(),
		Name:        slot.Name,
		StartTime:   slot.StartTime,
		DurationMin: slot.DurationMin,
		IsActive:    slot.IsActive,
	}
}

// MapSlotsToResponse converts a slice of domain.Slot to DTOs.
func MapSlotsToResponse(slots []domain.Slot) []SlotResponse {
	responses := make([]SlotResponse, len(slots))
	for i := range slots {
		responses[i] = MapSlotToResponse(&slots[i])
	}
	return responses
}

// --- Handler Methods ---

// ListExercises godoc
// @Summary List catalog exercises
// @Description Lists active catalog entries, optionally filtered by category. Pass includeInactive=true to see retired entries too.
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param category query string false "Filter by category"
// @Param includeInactive query bool false "Include retired entries"
// @Success 200 {array} ExerciseResponse "List of exercises"
// @Failure 400 {object} gin.H "Unknown category"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /exercises [get]
func (h *CatalogHandler) ListExercises(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		exercises, err := h.catalogService.ListExercisesByCategory(c.Request.Context(), domain.ExerciseCategory(category))
		if err != nil {
			if errors.Is(err, service.ErrValidationFailed) {
				abortWithError(c, http.StatusBadRequest, "Unknown exercise category: "+category)
			} else {
				abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
			}
			return
		}
		c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
		return
	}

	activeOnly := c.Query("includeInactive") != "true"
	exercises, err := h.catalogService.ListExercises(c.Request.Context(), activeOnly)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}

// GetExercise godoc
// @Summary Get one catalog exercise
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} ExerciseResponse
// @Failure 404 {object} gin.H "Not found"
// @Router /exercises/{id} [get]
func (h *CatalogHandler) GetExercise(c *gin.Context) {
	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format.")
		return
	}

	exercise, err := h.catalogService.GetExerciseByID(c.Request.Context(), exerciseID)
	if err != nil {
		if errors.Is(err, service.ErrExerciseNotFound) {
			abortWithError(c, http.StatusNotFound, "Exercise not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercise.")
		}
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// GetFlowSteps godoc
// @Summary Resolve a compound flow's steps
// @Description Returns the member exercises of a compound flow in practice order.
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Flow exercise ID"
// @Success 200 {array} ExerciseResponse
// @Failure 400 {object} gin.H "Not a compound flow"
// @Failure 404 {object} gin.H "Not found"
// @Router /exercises/{id}/steps [get]
func (h *CatalogHandler) GetFlowSteps(c *gin.Context) {
	flowID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format.")
		return
	}

	steps, err := h.catalogService.GetFlowSteps(c.Request.Context(), flowID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExerciseNotFound):
			abortWithError(c, http.StatusNotFound, "Exercise not found.")
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, "Exercise is not a compound flow.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to resolve flow steps.")
		}
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(steps))
}

// ListSlots godoc
// @Summary List timetable slots
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param includeInactive query bool false "Include retired slots"
// @Success 200 {array} SlotResponse
// @Router /slots [get]
func (h *CatalogHandler) ListSlots(c *gin.Context) {
	activeOnly := c.Query("includeInactive") != "true"
	slots, err := h.catalogService.ListSlots(c.Request.Context(), activeOnly)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve slots.")
		return
	}
	c.JSON(http.StatusOK, MapSlotsToResponse(slots))
}
