// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AttributionDTO carries campaign attribution across the API boundary. Fields
// are present only when they were captured.
type AttributionDTO struct {
	UTMSource   *string `json:"utm_source,omitempty" validate:"omitempty,max=255"`
	UTMMedium   *string `json:"utm_medium,omitempty" validate:"omitempty,max=255"`
	UTMCampaign *string `json:"utm_campaign,omitempty" validate:"omitempty,max=255"`
	UTMTerm     *string `json:"utm_term,omitempty" validate:"omitempty,max=255"`
	UTMContent  *string `json:"utm_content,omitempty" validate:"omitempty,max=255"`
	Referrer    *string `json:"referrer,omitempty" validate:"omitempty,max=2048"`
	LandingPage *string `json:"landing_page,omitempty" validate:"omitempty,max=2048"`
	CapturedAt  string  `json:"captured_at,omitempty"`
}

// JoinWaitlistRequest represents a waitlist signup submission
type JoinWaitlistRequest struct {
	Email   string  `json:"email" validate:"required,email,max=255"`
	Source  *string `json:"source,omitempty" validate:"omitempty,max=100"`
	Variant *string `json:"variant,omitempty" validate:"omitempty,max=20"`

	// Optional explicit attribution override; wins over session-stored attribution
	Attribution *AttributionDTO `json:"attribution,omitempty" validate:"omitempty"`
}

// JoinWaitlistResponse represents the response after a successful waitlist signup
type JoinWaitlistResponse struct {
	Message   string `json:"message"`
	SignupID  uint   `json:"signup_id,omitempty"`
	UUID      string `json:"uuid"`
	CreatedAt string `json:"created_at,omitempty"`
	DemoMode  bool   `json:"demo_mode,omitempty"`
}

// WaitlistCountResponse represents the total waitlist size
type WaitlistCountResponse struct {
	Count    int64 `json:"count"`
	DemoMode bool  `json:"demo_mode,omitempty"`
}
