package api

import (
	"alcyxob/yoga-studio/internal/domain" // Needed for RoleMiddleware
	"alcyxob/yoga-studio/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	// swaggerFiles "github.com/swaggo/files"
	// ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	catalogService service.CatalogService,
	templateService service.TemplateService,
	scheduleService service.ScheduleService,
	executionService service.ExecutionService,
	overuseService service.OveruseService,
	analyticsService service.AnalyticsService,
) {

	catalogHandler := NewCatalogHandler(catalogService)
	templateHandler := NewTemplateHandler(templateService, overuseService, executionService)
	scheduleHandler := NewScheduleHandler(scheduleService)
	executionHandler := NewExecutionHandler(executionService)
	reportHandler := NewReportHandler(analyticsService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := router.Group("/api/v1")

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			staffID, err := getStaffIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get staff ID from token")
				return
			}
			role, _ := getStaffRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"staffId": staffID.Hex(), "role": role})
		})

		// --- Catalog Routes (read-only; the seeder owns writes) ---
		exerciseGroup := protected.Group("/exercises")
		{
			// GET /api/v1/exercises?category=...&includeInactive=true
			exerciseGroup.GET("", catalogHandler.ListExercises)
			// GET /api/v1/exercises/{id}
			exerciseGroup.GET("/:id", catalogHandler.GetExercise)
			// GET /api/v1/exercises/{id}/steps - resolved steps of a compound flow
			exerciseGroup.GET("/:id/steps", catalogHandler.GetFlowSteps)
		}
		// GET /api/v1/slots
		protected.GET("/slots", catalogHandler.ListSlots)

		// --- Template Routes ---
		templateGroup := protected.Group("/templates")
		{
			// POST /api/v1/templates
			templateGroup.POST("", templateHandler.CreateTemplate)
			// GET /api/v1/templates?includeArchived=true
			templateGroup.GET("", templateHandler.ListTemplates)
			// GET /api/v1/templates/{id}
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			// PUT /api/v1/templates/{id} - full edit, guarded by the version token
			templateGroup.PUT("/:id", templateHandler.UpdateTemplate)
			// DELETE /api/v1/templates/{id} - archive, not erase. Admins only.
			templateGroup.DELETE("/:id", RoleMiddleware(domain.RoleAdmin), templateHandler.DeactivateTemplate)
			// POST /api/v1/templates/{id}/clone
			templateGroup.POST("/:id/clone", templateHandler.CloneTemplate)
			// GET /api/v1/templates/{id}/insights
			templateGroup.GET("/:id/insights", templateHandler.GetTemplateInsights)
			// GET /api/v1/templates/{id}/overuse-warning
			templateGroup.GET("/:id/overuse-warning", templateHandler.GetOveruseWarning)
			// GET /api/v1/templates/{id}/executions
			templateGroup.GET("/:id/executions", templateHandler.GetTemplateExecutions)
		}

		// --- Allocation / Schedule Routes ---
		allocationGroup := protected.Group("/allocations")
		{
			// POST /api/v1/allocations
			allocationGroup.POST("", scheduleHandler.CreateAllocation)
			// POST /api/v1/allocations/bulk - fill every free slot of a day
			allocationGroup.POST("/bulk", scheduleHandler.CreateBulkAllocation)
			// GET /api/v1/allocations/{id}
			allocationGroup.GET("/:id", scheduleHandler.GetAllocation)
			// DELETE /api/v1/allocations/{id} - cancel, frees the slot for the day
			allocationGroup.DELETE("/:id", scheduleHandler.CancelAllocation)
		}
		// GET /api/v1/schedule?from=...&to=...
		protected.GET("/schedule", scheduleHandler.GetScheduleRange)
		// GET /api/v1/schedule/{date}
		protected.GET("/schedule/:date", scheduleHandler.GetScheduleForDate)

		// --- Execution Routes (append-only history) ---
		executionGroup := protected.Group("/executions")
		{
			// POST /api/v1/executions
			executionGroup.POST("", executionHandler.RecordExecution)
			// GET /api/v1/executions?from=...&to=...
			executionGroup.GET("", executionHandler.ListExecutions)
			// GET /api/v1/executions/{id}
			executionGroup.GET("/:id", executionHandler.GetExecution)
			// Recorded history cannot be edited or deleted, only answered with 405.
			executionGroup.PUT("/:id", executionHandler.RejectMutation)
			executionGroup.PATCH("/:id", executionHandler.RejectMutation)
			executionGroup.DELETE("/:id", executionHandler.RejectMutation)
		}
		// GET /api/v1/members/{id}/executions
		protected.GET("/members/:id/executions", executionHandler.GetMemberExecutions)

		// --- Report Routes ---
		reportGroup := protected.Group("/reports")
		{
			// GET /api/v1/reports/exercise-usage?from=...&to=...
			reportGroup.GET("/exercise-usage", reportHandler.GetExerciseUsageReport)
			// GET /api/v1/reports/body-regions?from=...&to=...
			reportGroup.GET("/body-regions", reportHandler.GetBodyRegionFocusReport)
			// GET /api/v1/reports/benefits?from=...&to=...
			reportGroup.GET("/benefits", reportHandler.GetBenefitCoverageReport)
			// POST /api/v1/reports/export - writes to object storage. Admins only.
			reportGroup.POST("/export", RoleMiddleware(domain.RoleAdmin), reportHandler.ExportReport)
		}
	}
}
