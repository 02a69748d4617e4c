// Package businessflow contains the core business logic and use cases for waitlist and attribution workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/friendumbrella/landing-api/app/services"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
)

// PageContext is the page-visit context attribution is extracted from. Address
// is the full URL of the visited page, Referrer the referring URL (may be empty).
type PageContext struct {
	Address  string
	Referrer string
}

// Query parameters recognized by the extractor
const (
	paramUTMSource   = "utm_source"
	paramUTMMedium   = "utm_medium"
	paramUTMCampaign = "utm_campaign"
	paramUTMTerm     = "utm_term"
	paramUTMContent  = "utm_content"
	paramGCLID       = "gclid"
)

// ExtractAttribution parses the visited page address and builds an attribution
// record. A malformed address fails the extraction as a whole; callers treat
// that as "no attribution", never as a partial record.
func ExtractAttribution(page PageContext) (*models.Attribution, error) {
	u, err := url.Parse(page.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageAddress, err)
	}

	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageAddress, err)
	}

	a := &models.Attribution{
		CapturedAt: utils.UTCNowRFC3339(),
	}

	if v := params.Get(paramUTMSource); v != "" {
		a.UTMSource = &v
	}
	if v := params.Get(paramUTMMedium); v != "" {
		a.UTMMedium = &v
	}
	if v := params.Get(paramUTMCampaign); v != "" {
		a.UTMCampaign = &v
	}
	if v := params.Get(paramUTMTerm); v != "" {
		a.UTMTerm = &v
	}
	if v := params.Get(paramUTMContent); v != "" {
		a.UTMContent = &v
	}

	if page.Referrer != "" {
		referrer := page.Referrer
		a.Referrer = &referrer
	}
	if u.Path != "" {
		landing := u.Path
		a.LandingPage = &landing
	}

	return a, nil
}

// IsGoogleTraffic reports whether a visit looks Google-originated: a google
// utm_source, a gclid click identifier, or a Google referrer domain.
func IsGoogleTraffic(a *models.Attribution, page PageContext) bool {
	if a != nil && a.UTMSource != nil &&
		strings.Contains(strings.ToLower(*a.UTMSource), "google") {
		return true
	}

	u, err := url.Parse(page.Address)
	if err == nil && u.Query().Get(paramGCLID) != "" {
		return true
	}

	referrer := strings.ToLower(page.Referrer)
	return strings.Contains(referrer, "google.com") ||
		strings.Contains(referrer, "googleads") ||
		strings.Contains(referrer, "googlesyndication")
}

// ClassifyCampaignType maps the ad medium and referrer onto a Google Ads
// campaign type.
func ClassifyCampaignType(medium, referrer string) string {
	switch strings.ToLower(medium) {
	case "cpc":
		return models.CampaignTypeSearch
	case "display":
		return models.CampaignTypeDisplay
	case "video":
		return models.CampaignTypeVideo
	case "shopping":
		return models.CampaignTypeShopping
	}

	referrer = strings.ToLower(referrer)
	if strings.Contains(referrer, "youtube.com") {
		return models.CampaignTypeVideo
	}
	if strings.Contains(referrer, "google.com/shopping") {
		return models.CampaignTypeShopping
	}

	return models.CampaignTypeSearch
}

// DeriveGoogleAttribution builds the Google-specific attribution view when the
// visit looks Google-originated. Returns nil for non-Google traffic.
func DeriveGoogleAttribution(a *models.Attribution, page PageContext) *models.GoogleAttribution {
	if !IsGoogleTraffic(a, page) {
		return nil
	}

	g := &models.GoogleAttribution{
		Source:     models.GoogleDefaultSource,
		Medium:     models.GoogleDefaultMedium,
		Campaign:   models.GoogleDefaultCampaign,
		CapturedAt: utils.UTCNowRFC3339(),
	}

	medium := ""
	if a != nil {
		if a.UTMSource != nil {
			g.Source = *a.UTMSource
		}
		if a.UTMMedium != nil {
			g.Medium = *a.UTMMedium
			medium = *a.UTMMedium
		}
		if a.UTMCampaign != nil {
			g.Campaign = *a.UTMCampaign
		}
		g.AdGroup = a.UTMContent
		g.Keyword = a.UTMTerm
		g.Placement = a.UTMContent
	}

	if u, err := url.Parse(page.Address); err == nil {
		if gclid := u.Query().Get(paramGCLID); gclid != "" {
			g.GCLID = &gclid
		}
	}

	g.CampaignType = ClassifyCampaignType(medium, page.Referrer)

	return g
}

// AttributionFlow captures and resolves visit attribution for a visitor session
type AttributionFlow interface {
	Capture(ctx context.Context, sessionID string, page PageContext) (*models.Attribution, *models.GoogleAttribution)
	Resolve(ctx context.Context, sessionID string, page PageContext) (*models.Attribution, *models.GoogleAttribution)
}

// AttributionFlowImpl implements the attribution capture flow
type AttributionFlowImpl struct {
	store services.AttributionStore
}

// NewAttributionFlow creates a new attribution flow instance
func NewAttributionFlow(store services.AttributionStore) AttributionFlow {
	return &AttributionFlowImpl{store: store}
}

// Capture extracts attribution from a page visit and stores it under the
// visitor session. Store failures are logged and swallowed: attribution is
// best-effort and must never break page handling. The Google view is written
// redundantly alongside the standard record when the visit is Google traffic.
func (f *AttributionFlowImpl) Capture(ctx context.Context, sessionID string, page PageContext) (*models.Attribution, *models.GoogleAttribution) {
	attribution, err := ExtractAttribution(page)
	if err != nil {
		log.Printf("[WARN] attribution extraction failed: %v", err)
		return nil, nil
	}

	google := DeriveGoogleAttribution(attribution, page)

	// Store only when at least one attribution field was present
	if attribution.IsEmpty() && google == nil {
		return nil, nil
	}

	// A Google click without explicit tags (bare gclid, ads referrer) still
	// carries the derived defaults. Mirror them onto the standard record so
	// both session keys are written and the signup flattening sees them.
	if attribution.IsEmpty() && google != nil {
		attribution.UTMSource = &google.Source
		attribution.UTMMedium = &google.Medium
		attribution.UTMCampaign = &google.Campaign
		attribution.UTMTerm = google.Keyword
		attribution.UTMContent = google.AdGroup
	}

	if sessionID != "" && f.store != nil {
		if err := f.store.SaveAttribution(ctx, sessionID, attribution); err != nil {
			log.Printf("[WARN] attribution store unavailable, dropping capture: %v", err)
		}
		if google != nil {
			if err := f.store.SaveGoogleAttribution(ctx, sessionID, google); err != nil {
				log.Printf("[WARN] attribution store unavailable, dropping google capture: %v", err)
			}
		}
	}

	return attribution, google
}

// Resolve returns the attribution for a session: the stored record when one
// exists, a fresh extraction from the current page otherwise. It never fails;
// a broken store or malformed page simply yields no attribution.
func (f *AttributionFlowImpl) Resolve(ctx context.Context, sessionID string, page PageContext) (*models.Attribution, *models.GoogleAttribution) {
	var attribution *models.Attribution
	var google *models.GoogleAttribution

	if sessionID != "" && f.store != nil {
		stored, err := f.store.LoadAttribution(ctx, sessionID)
		if err != nil {
			log.Printf("[WARN] attribution store unavailable, falling back to extraction: %v", err)
		} else {
			attribution = stored
		}

		storedGoogle, err := f.store.LoadGoogleAttribution(ctx, sessionID)
		if err == nil {
			google = storedGoogle
		}
	}

	if attribution == nil && google == nil {
		return f.Capture(ctx, sessionID, page)
	}

	return attribution, google
}
