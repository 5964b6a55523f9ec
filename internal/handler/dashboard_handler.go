package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hsscguru/hssc-guru-backend/internal/middleware"
	"github.com/hsscguru/hssc-guru-backend/internal/response"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
)

// DashboardHandler serves the user and admin dashboards.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetUserDashboard godoc
// GET /api/v1/dashboard
// Returns the user's headline numbers, recent attempts, and weakest topics.
func (h *DashboardHandler) GetUserDashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	dashboard, err := h.dashboardService.UserDashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"dashboard": dashboard})
}

// GetAdminDashboard godoc
// GET /api/v1/admin/dashboard
// Returns platform-wide counts.
func (h *DashboardHandler) GetAdminDashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.AdminDashboard(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"dashboard": dashboard})
}
