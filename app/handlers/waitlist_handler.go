// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/app/middleware"
	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WaitlistHandlerInterface defines the contract for waitlist handlers
type WaitlistHandlerInterface interface {
	Join(c fiber.Ctx) error
	Count(c fiber.Ctx) error
}

// WaitlistHandler handles waitlist-related HTTP requests
type WaitlistHandler struct {
	waitlistFlow businessflow.WaitlistFlow
	validator    *validator.Validate
}

// NewWaitlistHandler creates a new waitlist handler
func NewWaitlistHandler(waitlistFlow businessflow.WaitlistFlow) *WaitlistHandler {
	return &WaitlistHandler{
		waitlistFlow: waitlistFlow,
		validator:    validator.New(),
	}
}

func (h *WaitlistHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *WaitlistHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Join handles a waitlist signup submission
// @Summary Join Waitlist
// @Description Submit an email to the waitlist with campaign attribution
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param request body dto.JoinWaitlistRequest true "Waitlist signup data"
// @Success 201 {object} dto.APIResponse{data=dto.JoinWaitlistResponse} "Joined successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Identity required"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/waitlist [post]
func (h *WaitlistHandler) Join(c fiber.Ctx) error {
	var req dto.JoinWaitlistRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	identity := middleware.IdentityFromContext(c)
	sessionID := middleware.AttributionSessionID(c)
	metadata.SetSessionID(sessionID)
	page := pageContextFromRequest(c)

	// Call business logic with proper context
	result, err := h.waitlistFlow.Join(h.createRequestContext(c, "/api/v1/waitlist"), &req, identity, sessionID, page, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsIdentityRequired(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Please sign in to join the waitlist", "IDENTITY_REQUIRED", nil)
		}
		if businessflow.IsEmailAlreadyRegistered(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already registered!", "EMAIL_ALREADY_REGISTERED", nil)
		}
		if businessflow.IsInvalidPageAddress(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page address", "INVALID_PAGE_ADDRESS", nil)
		}

		log.Println("Waitlist join failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to join the waitlist", "WAITLIST_JOIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// Count handles waitlist size requests
// @Summary Waitlist Count
// @Description Return the total number of waitlist signups
// @Tags Waitlist
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.WaitlistCountResponse} "Current waitlist size"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/waitlist/count [get]
func (h *WaitlistHandler) Count(c fiber.Ctx) error {
	result, err := h.waitlistFlow.Count(h.createRequestContext(c, "/api/v1/waitlist/count"))
	if err != nil {
		log.Println("Waitlist count failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch waitlist count", "WAITLIST_COUNT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Waitlist count fetched successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *WaitlistHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *WaitlistHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
