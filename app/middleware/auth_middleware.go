// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/app/services"
	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/gofiber/fiber/v3"
)

const (
	identityLocalKey     = "identity"
	sessionTokenLocalKey = "session_token"
)

// AuthMiddleware resolves the visitor identity behind bearer tokens
type AuthMiddleware struct {
	tokenService services.TokenService
	authFlow     businessflow.AuthFlow
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, authFlow businessflow.AuthFlow) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		authFlow:     authFlow,
	}
}

// RequireIdentity validates the bearer token and rejects anonymous callers
func (m *AuthMiddleware) RequireIdentity() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Get the Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_AUTHORIZATION_HEADER",
				},
			})
		}

		// Check if the header starts with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid authorization header format. Expected 'Bearer <token>'",
				Error: dto.ErrorDetail{
					Code: "INVALID_AUTHORIZATION_FORMAT",
				},
			})
		}

		// Extract the token (remove "Bearer " prefix)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Access token is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_ACCESS_TOKEN",
				},
			})
		}

		// Validate the token (this already checks for revocation)
		if _, err := m.tokenService.ValidateToken(token); err != nil {
			var errorCode string
			var message string

			// Determine the specific error type
			if errors.Is(err, services.ErrTokenExpired) {
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			} else if errors.Is(err, services.ErrTokenRevoked) {
				errorCode = "TOKEN_REVOKED"
				message = "Access token has been revoked"
			} else {
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}

			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error: dto.ErrorDetail{
					Code: errorCode,
				},
			})
		}

		// The token is valid; the session behind it must still be live
		identity, err := m.resolveIdentity(token)
		if err != nil || identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Session is no longer valid",
				Error: dto.ErrorDetail{
					Code: "INVALID_SESSION",
				},
			})
		}

		// Store identity in context for downstream handlers
		c.Locals(identityLocalKey, identity)
		c.Locals(sessionTokenLocalKey, token)

		// Store RequestID for audit logging
		if requestID := c.Get(businessflow.RequestIDKey); requestID != "" {
			c.Locals("request_id", requestID)
		}

		// Continue to the next handler
		return c.Next()
	}
}

// OptionalIdentity resolves the identity when a valid token is presented but
// never rejects the request. Anonymous callers continue with no identity set.
func (m *AuthMiddleware) OptionalIdentity() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Next()
		}

		c.Locals(sessionTokenLocalKey, token)

		identity, err := m.resolveIdentity(token)
		if err != nil || identity == nil {
			// Invalid token on an optional route degrades to anonymous
			return c.Next()
		}

		c.Locals(identityLocalKey, identity)
		return c.Next()
	}
}

func (m *AuthMiddleware) resolveIdentity(token string) (*businessflow.Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	identity, _, err := m.authFlow.CurrentIdentity(ctx, token)
	return identity, err
}

// IdentityFromContext returns the resolved identity, or nil for anonymous callers
func IdentityFromContext(c fiber.Ctx) *businessflow.Identity {
	if identity, ok := c.Locals(identityLocalKey).(*businessflow.Identity); ok {
		return identity
	}
	return nil
}

// SessionTokenFromContext returns the raw bearer token presented on the request
func SessionTokenFromContext(c fiber.Ctx) string {
	if token, ok := c.Locals(sessionTokenLocalKey).(string); ok {
		return token
	}
	return ""
}
