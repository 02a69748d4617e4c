// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AnalyticsHandlerInterface defines the contract for attribution reporting handlers
type AnalyticsHandlerInterface interface {
	UTMReport(c fiber.Ctx) error
	UTMReportExport(c fiber.Ctx) error
}

// AnalyticsHandler handles attribution reporting HTTP requests
type AnalyticsHandler struct {
	reportingFlow businessflow.ReportingFlow
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(reportingFlow businessflow.ReportingFlow) *AnalyticsHandler {
	return &AnalyticsHandler{
		reportingFlow: reportingFlow,
	}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UTMReport handles attribution report requests
// @Summary UTM Attribution Report
// @Description Aggregate waitlist signups by source, medium and campaign
// @Tags Analytics
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UTMReportResponse} "Attribution report"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/analytics/utm [get]
func (h *AnalyticsHandler) UTMReport(c fiber.Ctx) error {
	result, err := h.reportingFlow.Report(h.createRequestContext(c, "/api/v1/analytics/utm"))
	if err != nil {
		log.Println("UTM report failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build attribution report", "REPORT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Attribution report generated", result)
}

// UTMReportExport returns the attribution report as an Excel workbook
// @Summary Export UTM Attribution Report
// @Description Download the attribution report as an XLSX workbook
// @Tags Analytics
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Attribution report workbook"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/analytics/utm/export [get]
func (h *AnalyticsHandler) UTMReportExport(c fiber.Ctx) error {
	filename, data, err := h.reportingFlow.ExportReport(h.createRequestContext(c, "/api/v1/analytics/utm/export"))
	if err != nil {
		log.Println("UTM report export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AnalyticsHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
