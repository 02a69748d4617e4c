// Package models contains domain entities and business models for the landing API
package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistSignup is a single waitlist entry. Attribution is flattened onto
// the row at submission time so reporting never needs a join.
type WaitlistSignup struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_waitlist_signups_uuid" json:"uuid"`

	Email   string `gorm:"size:255;not null;uniqueIndex:uk_waitlist_signups_email" json:"email"`
	Source  string `gorm:"size:100;not null;default:'landing_page';index:idx_waitlist_signups_source" json:"source"`
	Variant string `gorm:"size:20;not null;default:'A'" json:"variant"`

	// Set when an identified visitor submitted the signup
	VisitorID *uint    `gorm:"index:idx_waitlist_signups_visitor_id" json:"visitor_id,omitempty"`
	Visitor   *Visitor `gorm:"foreignKey:VisitorID;references:ID" json:"visitor,omitempty"`

	UTMSource   *string `gorm:"size:255;index:idx_waitlist_signups_utm_source" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"size:255;index:idx_waitlist_signups_utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"size:255;index:idx_waitlist_signups_utm_campaign" json:"utm_campaign,omitempty"`
	UTMTerm     *string `gorm:"size:255" json:"utm_term,omitempty"`
	UTMContent  *string `gorm:"size:255" json:"utm_content,omitempty"`
	Referrer    *string `gorm:"type:text" json:"referrer,omitempty"`
	LandingPage *string `gorm:"type:text" json:"landing_page,omitempty"`

	GoogleSource       *string `gorm:"size:255" json:"google_utm_source,omitempty"`
	GoogleMedium       *string `gorm:"size:255" json:"google_utm_medium,omitempty"`
	GoogleCampaign     *string `gorm:"size:255" json:"google_utm_campaign,omitempty"`
	GCLID              *string `gorm:"size:255;index:idx_waitlist_signups_gclid" json:"gclid,omitempty"`
	GoogleAdGroup      *string `gorm:"size:255" json:"google_ad_group,omitempty"`
	GoogleKeyword      *string `gorm:"size:255" json:"google_keyword,omitempty"`
	GooglePlacement    *string `gorm:"size:255" json:"google_placement,omitempty"`
	GoogleCampaignType *string `gorm:"size:50" json:"google_campaign_type,omitempty"`

	IPAddress *string `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"type:text" json:"user_agent,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_waitlist_signups_created_at" json:"created_at"`
}

func (WaitlistSignup) TableName() string { return "waitlist_signups" }

// HasAttribution reports whether any UTM field was captured for this signup.
func (w *WaitlistSignup) HasAttribution() bool {
	return w.UTMSource != nil || w.UTMMedium != nil || w.UTMCampaign != nil ||
		w.UTMTerm != nil || w.UTMContent != nil
}

// ApplyAttribution flattens a captured attribution record onto the signup row.
func (w *WaitlistSignup) ApplyAttribution(a *Attribution) {
	if a == nil {
		return
	}
	w.UTMSource = a.UTMSource
	w.UTMMedium = a.UTMMedium
	w.UTMCampaign = a.UTMCampaign
	w.UTMTerm = a.UTMTerm
	w.UTMContent = a.UTMContent
	w.Referrer = a.Referrer
	w.LandingPage = a.LandingPage
}

// ApplyGoogleAttribution flattens the Google-specific view onto the signup row.
func (w *WaitlistSignup) ApplyGoogleAttribution(g *GoogleAttribution) {
	if g == nil {
		return
	}
	w.GoogleSource = &g.Source
	w.GoogleMedium = &g.Medium
	w.GoogleCampaign = &g.Campaign
	w.GCLID = g.GCLID
	w.GoogleAdGroup = g.AdGroup
	w.GoogleKeyword = g.Keyword
	w.GooglePlacement = g.Placement
	w.GoogleCampaignType = &g.CampaignType
}

// WaitlistSignupFilter represents filter criteria for waitlist queries
type WaitlistSignupFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	Email          *string
	Source         *string
	Variant        *string
	VisitorID      *uint
	UTMSource      *string
	UTMMedium      *string
	UTMCampaign    *string
	HasAttribution *bool // Helper to select only attributed rows
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}
