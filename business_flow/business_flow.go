// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the visitor session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// Identity is the resolved caller identity. A nil *Identity means anonymous.
type Identity struct {
	VisitorID uint
	Email     string
}

// ToAuthVisitorDTO converts a visitor model to AuthVisitorDTO for authentication responses
func ToAuthVisitorDTO(visitor models.Visitor) dto.AuthVisitorDTO {
	return dto.AuthVisitorDTO{
		ID:          visitor.ID,
		UUID:        visitor.UUID.String(),
		Email:       visitor.Email,
		DisplayName: visitor.DisplayName,
		IsActive:    visitor.IsActive,
		CreatedAt:   visitor.CreatedAt.Format(time.RFC3339),
	}
}

func ToVisitorSessionDTO(session models.VisitorSession) dto.VisitorSessionDTO {
	return dto.VisitorSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToAttributionDTO converts a captured attribution record for API responses
func ToAttributionDTO(a *models.Attribution) *dto.AttributionDTO {
	if a == nil {
		return nil
	}
	return &dto.AttributionDTO{
		UTMSource:   a.UTMSource,
		UTMMedium:   a.UTMMedium,
		UTMCampaign: a.UTMCampaign,
		UTMTerm:     a.UTMTerm,
		UTMContent:  a.UTMContent,
		Referrer:    a.Referrer,
		LandingPage: a.LandingPage,
		CapturedAt:  a.CapturedAt,
	}
}

// FromAttributionDTO converts an explicit attribution override from a request
func FromAttributionDTO(d *dto.AttributionDTO) *models.Attribution {
	if d == nil {
		return nil
	}
	return &models.Attribution{
		UTMSource:   d.UTMSource,
		UTMMedium:   d.UTMMedium,
		UTMCampaign: d.UTMCampaign,
		UTMTerm:     d.UTMTerm,
		UTMContent:  d.UTMContent,
		Referrer:    d.Referrer,
		LandingPage: d.LandingPage,
		CapturedAt:  d.CapturedAt,
	}
}
