// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CampaignSummaryDTO aggregates signups sharing a (source, medium, campaign)
// triple. LatestSignup is the RFC3339 timestamp of the newest signup.
type CampaignSummaryDTO struct {
	Source       string `json:"source"`
	Medium       string `json:"medium"`
	Campaign     string `json:"campaign"`
	Count        int    `json:"count"`
	LatestSignup string `json:"latest_signup"`
}

// RecentSignupDTO is a single entry in the recent-signups list
type RecentSignupDTO struct {
	Email       string  `json:"email"`
	Source      string  `json:"source"`
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// UTMReportResponse is the attribution report for the dashboard
type UTMReportResponse struct {
	TotalSignups      int64                `json:"total_signups"`
	AttributedSignups int                  `json:"attributed_signups"`
	Sources           map[string]int       `json:"sources"`
	Mediums           map[string]int       `json:"mediums"`
	Campaigns         []CampaignSummaryDTO `json:"campaigns"`
	RecentSignups     []RecentSignupDTO    `json:"recent_signups"`
	DemoMode          bool                 `json:"demo_mode,omitempty"`
	GeneratedAt       string               `json:"generated_at"`
}
