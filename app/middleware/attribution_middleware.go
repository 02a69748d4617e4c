// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"strings"
	"time"

	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	// AttributionCookieName identifies the visitor session the attribution is keyed by
	AttributionCookieName = "fu_session"

	attributionSessionLocalKey = "attribution_session_id"
)

// AttributionMiddleware assigns each visitor a session cookie and captures UTM
// parameters from landing page hits so a later signup can claim them.
type AttributionMiddleware struct {
	attributionFlow businessflow.AttributionFlow
}

// NewAttributionMiddleware creates a new attribution middleware
func NewAttributionMiddleware(attributionFlow businessflow.AttributionFlow) *AttributionMiddleware {
	return &AttributionMiddleware{
		attributionFlow: attributionFlow,
	}
}

// Track ensures the session cookie exists and records attribution from the
// request when it carries campaign parameters. Capture failures never block
// the request.
func (m *AttributionMiddleware) Track() fiber.Handler {
	return func(c fiber.Ctx) error {
		sessionID := c.Cookies(AttributionCookieName)
		if sessionID == "" {
			sessionID = c.Get("X-Session-ID")
		}
		if sessionID == "" {
			sessionID = uuid.New().String()
			c.Cookie(&fiber.Cookie{
				Name:     AttributionCookieName,
				Value:    sessionID,
				Expires:  utils.UTCNowAdd(utils.AttributionTTL),
				HTTPOnly: true,
				SameSite: "Lax",
				Path:     "/",
			})
		}

		c.Locals(attributionSessionLocalKey, sessionID)

		// Landing page hits arrive as GETs carrying the campaign query string
		if c.Method() == fiber.MethodGet && strings.Contains(c.OriginalURL(), "?") {
			page := businessflow.PageContext{
				Address:  c.OriginalURL(),
				Referrer: c.Get("Referer"),
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			m.attributionFlow.Capture(ctx, sessionID, page)
			cancel()
		}

		return c.Next()
	}
}

// AttributionSessionID returns the session the attribution is stored under
func AttributionSessionID(c fiber.Ctx) string {
	if sessionID, ok := c.Locals(attributionSessionLocalKey).(string); ok {
		return sessionID
	}
	return ""
}
