// Package models contains domain entities and business models for the landing API
package models

// Google Ads campaign type classifications
const (
	CampaignTypeSearch   = "search"
	CampaignTypeDisplay  = "display"
	CampaignTypeVideo    = "video"
	CampaignTypeShopping = "shopping"
)

// Defaults applied when Google-originated traffic arrives without explicit tags
const (
	GoogleDefaultSource   = "google_ads"
	GoogleDefaultMedium   = "cpc"
	GoogleDefaultCampaign = "unknown_campaign"
)

// Attribution is the campaign context captured from a page visit. A field is
// set only when the corresponding query parameter was present and non-empty.
type Attribution struct {
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	UTMTerm     *string `json:"utm_term,omitempty"`
	UTMContent  *string `json:"utm_content,omitempty"`
	Referrer    *string `json:"referrer,omitempty"`
	LandingPage *string `json:"landing_page,omitempty"`
	CapturedAt  string  `json:"captured_at"` // RFC3339
}

// IsEmpty reports whether nothing attributable was captured. Referrer and
// landing page alone do not count as attribution.
func (a *Attribution) IsEmpty() bool {
	return a.UTMSource == nil && a.UTMMedium == nil && a.UTMCampaign == nil &&
		a.UTMTerm == nil && a.UTMContent == nil
}

// GoogleAttribution is the Google-Ads-specific view of a visit, derived when
// traffic looks Google-originated. Defaults fill fields the tags omit.
type GoogleAttribution struct {
	Source       string  `json:"google_utm_source"`
	Medium       string  `json:"google_utm_medium"`
	Campaign     string  `json:"google_utm_campaign"`
	GCLID        *string `json:"gclid,omitempty"`
	AdGroup      *string `json:"google_ad_group,omitempty"`
	Keyword      *string `json:"google_keyword,omitempty"`
	Placement    *string `json:"google_placement,omitempty"`
	CampaignType string  `json:"campaign_type"`
	CapturedAt   string  `json:"captured_at"` // RFC3339
}
