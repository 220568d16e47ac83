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

// TemplateHandler serves the plan-template lifecycle plus the derived
// per-template views (insights, overuse warning, run history).
type TemplateHandler struct {
	templateService  service.TemplateService
	overuseService   service.OveruseService
	executionService service.ExecutionService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(
	templateService service.TemplateService,
	overuseService service.OveruseService,
	executionService service.ExecutionService,
) *TemplateHandler {
	return &TemplateHandler{
		templateService:  templateService,
		overuseService:   overuseService,
		executionService: executionService,
	}
}

// --- DTOs for API (Data Transfer Objects) ---

// PlanItemPayload carries one exercise placement, both directions.
type PlanItemPayload struct {
	ExerciseID  string `json:"exerciseId" binding:"required"`
	Order       int    `json:"order"`
	DurationMin int    `json:"durationMin,omitempty"`
	Rounds      int    `json:"rounds,omitempty"`
	Note        string `json:"note,omitempty"`
}

// PlanSectionPayload carries one plan section, both directions.
type PlanSectionPayload struct {
	Type  string            `json:"type" binding:"required"`
	Items []PlanItemPayload `json:"items"`
}

// CreateTemplateRequest defines the expected JSON for creating a template.
type CreateTemplateRequest struct {
	Name     string               `json:"name" binding:"required"`
	Note     string               `json:"note"`
	Level    string               `json:"level" binding:"required"`
	Sections []PlanSectionPayload `json:"sections" binding:"required"`
}

// UpdateTemplateRequest defines a full-document edit. Version must carry the
// version the client loaded; an edit against a stale version is rejected.
type UpdateTemplateRequest struct {
	Version  int                  `json:"version" binding:"required,min=1"`
	Name     string               `json:"name" binding:"required"`
	Note     string               `json:"note"`
	Level    string               `json:"level" binding:"required"`
	Sections []PlanSectionPayload `json:"sections" binding:"required"`
}

// CloneTemplateRequest optionally names the copy.
type CloneTemplateRequest struct {
	Name string `json:"name"`
}

// TemplateResponse is the DTO for returning templates.
type TemplateResponse struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Note       string               `json:"note,omitempty"`
	Level      string               `json:"level"`
	Version    int                  `json:"version"`
	Sections   []PlanSectionPayload `json:"sections"`
	CreatedBy  string               `json:"createdBy,omitempty"`
	LastUsedAt *time.Time           `json:"lastUsedAt,omitempty"`
	UsageCount int                  `json:"usageCount"`
	IsActive   bool                 `json:"isActive"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// mapSectionsFromPayload converts payload sections to domain sections,
// validating the exercise id format on the way.
func mapSectionsFromPayload(payload []PlanSectionPayload) ([]domain.PlanSection, error) {
	sections := make([]domain.PlanSection, len(payload))
	for si, sec := range payload {
		items := make([]domain.PlanItem, len(sec.Items))
		for ii, item := range sec.Items {
			exerciseID, err := primitive.ObjectIDFromHex(item.ExerciseID)
			if err != nil {
				return nil, errors.New("invalid exercise ID: " + item.ExerciseID)
			}
			items[ii] = domain.PlanItem{
				ExerciseID:  exerciseID,
				Order:       item.Order,
				DurationMin: item.DurationMin,
				Rounds:      item.Rounds,
				Note:        item.Note,
			}
		}
		sections[si] = domain.PlanSection{Type: domain.SectionType(sec.Type), Items: items}
	}
	return sections, nil
}

// MapSectionsToPayload converts domain sections to the wire shape.
func MapSectionsToPayload(sections []domain.PlanSection) []PlanSectionPayload {
	payload := make([]PlanSectionPayload, len(sections))
	for si, sec := range sections {
		items := make([]PlanItemPayload, len(sec.Items))
		for ii, item := range sec.Items {
			items[ii] = PlanItemPayload{
				ExerciseID:  item.ExerciseID.Hex(),
				Order:       item.Order,
				DurationMin: item.DurationMin,
				Rounds:      item.Rounds,
				Note:        item.Note,
			}
		}
		payload[si] = PlanSectionPayload{Type: string(sec.Type), Items: items}
	}
	return payload
}

// MapTemplateToResponse converts a domain.PlanTemplate to TemplateResponse DTO.
func MapTemplateToResponse(t *domain.PlanTemplate) TemplateResponse {
	if t == nil {
		return TemplateResponse{}
	}
	resp := TemplateResponse{
		ID:         t.ID.Hex(),
		Name:       t.Name,
		Note:       t.Note,
		Level:      string(t.Level),
		Version:    t.Version,
		Sections:   MapSectionsToPayload(t.Sections),
		LastUsedAt: t.LastUsedAt,
		UsageCount: t.UsageCount,
		IsActive:   t.IsActive,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.CreatedBy != primitive.NilObjectID {
		resp.CreatedBy = t.CreatedBy.Hex()
	}
	return resp
}

// MapTemplatesToResponse converts a slice of domain.PlanTemplate to DTOs.
func MapTemplatesToResponse(templates []domain.PlanTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, len(templates))
	for i := range templates {
		responses[i] = MapTemplateToResponse(&templates[i])
	}
	return responses
}

// --- Handler Methods ---

// CreateTemplate godoc
// @Summary Create a plan template
// @Description Creates a new session plan template at version 1.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body CreateTemplateRequest true "Template details"
// @Success 201 {object} TemplateResponse "Template created"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	staffID, err := getStaffIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller from token.")
		return
	}

	sections, err := mapSectionsFromPayload(req.Sections)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	template, err := h.templateService.Create(
		c.Request.Context(),
		req.Name,
		req.Note,
		domain.Level(req.Level),
		sections,
		staffID,
	)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create template.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapTemplateToResponse(template))
}

// ListTemplates godoc
// @Summary List plan templates
// @Description Lists active templates; pass includeArchived=true for the full set.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param includeArchived query bool false "Include archived templates"
// @Success 200 {array} TemplateResponse
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	activeOnly := c.Query("includeArchived") != "true"
	templates, err := h.templateService.List(c.Request.Context(), activeOnly)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve templates.")
		return
	}
	c.JSON(http.StatusOK, MapTemplatesToResponse(templates))
}

// GetTemplate godoc
// @Summary Get one plan template
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} TemplateResponse
// @Failure 404 {object} gin.H "Not found"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	template, err := h.templateService.GetByID(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, "Template not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve template.")
		}
		return
	}
	c.JSON(http.StatusOK, MapTemplateToResponse(template))
}

// UpdateTemplate godoc
// @Summary Update a plan template
// @Description Replaces the template's editable fields. The request must carry the version the client loaded; a stale version is rejected with 409.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param template body UpdateTemplateRequest true "New content plus expected version"
// @Success 200 {object} TemplateResponse "Updated template with bumped version"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Not found"
// @Failure 409 {object} gin.H "Version conflict — reload and retry"
// @Router /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sections, err := mapSectionsFromPayload(req.Sections)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	template, err := h.templateService.Update(
		c.Request.Context(),
		templateID,
		req.Version,
		req.Name,
		req.Note,
		domain.Level(req.Level),
		sections,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, "Template not found.")
		case errors.Is(err, service.ErrStaleVersion):
			abortWithError(c, http.StatusConflict, "Template was modified by someone else. Reload and retry.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update template.")
		}
		return
	}

	c.JSON(http.StatusOK, MapTemplateToResponse(template))
}

// CloneTemplate godoc
// @Summary Clone a plan template
// @Description Deep-copies the template into an independent new one with fresh version and usage stats.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Source template ID"
// @Param clone body CloneTemplateRequest false "Optional name for the copy"
// @Success 201 {object} TemplateResponse "The new template"
// @Failure 404 {object} gin.H "Source not found"
// @Router /templates/{id}/clone [post]
func (h *TemplateHandler) CloneTemplate(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var req CloneTemplateRequest
	// Body is optional; an empty body means default naming.
	_ = c.ShouldBindJSON(&req)

	staffID, err := getStaffIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller from token.")
		return
	}

	clone, err := h.templateService.Clone(c.Request.Context(), templateID, req.Name, staffID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, "Template not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to clone template.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapTemplateToResponse(clone))
}

// DeactivateTemplate godoc
// @Summary Archive a plan template
// @Description Archives the template. Existing allocations and executions keep referencing it; it just stops being schedulable. Admin only.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 204 "Archived"
// @Failure 404 {object} gin.H "Not found"
// @Failure 409 {object} gin.H "Concurrent edit in flight"
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeactivateTemplate(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	err = h.templateService.Deactivate(c.Request.Context(), templateID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, "Template not found.")
		case errors.Is(err, service.ErrStaleVersion):
			abortWithError(c, http.StatusConflict, "Template is being edited. Retry in a moment.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to archive template.")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTemplateInsights godoc
// @Summary Get derived insights for a template
// @Description Returns the dominant body regions and top benefits, computed from the template's items against the current catalog.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} service.TemplateInsights
// @Failure 404 {object} gin.H "Not found"
// @Router /templates/{id}/insights [get]
func (h *TemplateHandler) GetTemplateInsights(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	insights, err := h.templateService.Insights(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, "Template not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to compute insights.")
		}
		return
	}
	c.JSON(http.StatusOK, insights)
}

// GetOveruseWarning godoc
// @Summary Check a template for overuse
// @Description Warns when the template was used very recently or too often in the trailing window.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} service.OveruseWarning
// @Failure 404 {object} gin.H "Not found"
// @Router /templates/{id}/overuse-warning [get]
func (h *TemplateHandler) GetOveruseWarning(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	warning, err := h.overuseService.Warning(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, "Template not found.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to evaluate overuse.")
		}
		return
	}
	c.JSON(http.StatusOK, warning)
}

// GetTemplateExecutions godoc
// @Summary List a template's run history
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {array} ExecutionResponse
// @Router /templates/{id}/executions [get]
func (h *TemplateHandler) GetTemplateExecutions(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	executions, err := h.executionService.ListByTemplate(c.Request.Context(), templateID)
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
