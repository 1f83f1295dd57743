package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic_app_echo/internal/reporting"
)

// ReportSource builds the dashboard report
type ReportSource interface {
	Dashboard(ctx context.Context) (*reporting.Report, error)
}

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	reports ReportSource
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(reports ReportSource) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

// Data returns the dashboard payload as a bare object, computed fresh on every call
func (h *DashboardHandler) Data(c echo.Context) error {
	report, err := h.reports.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
