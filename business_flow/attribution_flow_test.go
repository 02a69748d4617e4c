package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/app/services"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAttribution(t *testing.T) {
	t.Run("FullUTMParameters", func(t *testing.T) {
		page := PageContext{
			Address: "https://friendumbrella.com/?utm_source=newsletter&utm_medium=email&utm_campaign=weekly_update",
		}

		a, err := ExtractAttribution(page)
		require.NoError(t, err)
		require.NotNil(t, a)

		require.NotNil(t, a.UTMSource)
		assert.Equal(t, "newsletter", *a.UTMSource)
		require.NotNil(t, a.UTMMedium)
		assert.Equal(t, "email", *a.UTMMedium)
		require.NotNil(t, a.UTMCampaign)
		assert.Equal(t, "weekly_update", *a.UTMCampaign)

		assert.Nil(t, a.UTMTerm)
		assert.Nil(t, a.UTMContent)
		assert.Nil(t, a.Referrer)
		assert.NotEmpty(t, a.CapturedAt)
	})

	t.Run("NoParametersYieldsEmptyRecord", func(t *testing.T) {
		a, err := ExtractAttribution(PageContext{Address: "https://friendumbrella.com/pricing"})
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.True(t, a.IsEmpty())
		require.NotNil(t, a.LandingPage)
		assert.Equal(t, "/pricing", *a.LandingPage)
	})

	t.Run("EmptyParameterValuesIgnored", func(t *testing.T) {
		a, err := ExtractAttribution(PageContext{Address: "https://friendumbrella.com/?utm_source=&utm_medium="})
		require.NoError(t, err)
		assert.True(t, a.IsEmpty())
	})

	t.Run("ReferrerCaptured", func(t *testing.T) {
		page := PageContext{
			Address:  "https://friendumbrella.com/?utm_source=blog",
			Referrer: "https://example.org/post",
		}

		a, err := ExtractAttribution(page)
		require.NoError(t, err)
		require.NotNil(t, a.Referrer)
		assert.Equal(t, "https://example.org/post", *a.Referrer)
	})

	t.Run("MalformedQueryFailsWhole", func(t *testing.T) {
		a, err := ExtractAttribution(PageContext{Address: "https://friendumbrella.com/?utm_source=a;b=%zz"})
		require.Error(t, err)
		assert.True(t, IsInvalidPageAddress(err))
		assert.Nil(t, a)
	})
}

func TestIsGoogleTraffic(t *testing.T) {
	t.Run("GoogleUTMSource", func(t *testing.T) {
		source := "Google_Ads"
		a := &models.Attribution{UTMSource: &source}
		assert.True(t, IsGoogleTraffic(a, PageContext{Address: "https://friendumbrella.com/"}))
	})

	t.Run("GCLIDParameter", func(t *testing.T) {
		page := PageContext{Address: "https://friendumbrella.com/?gclid=Cj0KCQiA"}
		assert.True(t, IsGoogleTraffic(nil, page))
	})

	t.Run("GoogleReferrer", func(t *testing.T) {
		page := PageContext{
			Address:  "https://friendumbrella.com/",
			Referrer: "https://www.google.com/search?q=umbrella",
		}
		assert.True(t, IsGoogleTraffic(nil, page))
	})

	t.Run("NonGoogleVisit", func(t *testing.T) {
		source := "newsletter"
		a := &models.Attribution{UTMSource: &source}
		page := PageContext{
			Address:  "https://friendumbrella.com/?utm_source=newsletter",
			Referrer: "https://duckduckgo.com/",
		}
		assert.False(t, IsGoogleTraffic(a, page))
	})
}

func TestClassifyCampaignType(t *testing.T) {
	assert.Equal(t, models.CampaignTypeSearch, ClassifyCampaignType("cpc", ""))
	assert.Equal(t, models.CampaignTypeDisplay, ClassifyCampaignType("display", ""))
	assert.Equal(t, models.CampaignTypeVideo, ClassifyCampaignType("video", ""))
	assert.Equal(t, models.CampaignTypeShopping, ClassifyCampaignType("shopping", ""))

	assert.Equal(t, models.CampaignTypeVideo, ClassifyCampaignType("", "https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, models.CampaignTypeShopping, ClassifyCampaignType("", "https://www.google.com/shopping/product/1"))

	// Unrecognized medium and referrer fall back to search
	assert.Equal(t, models.CampaignTypeSearch, ClassifyCampaignType("email", "https://example.org/"))
}

func TestDeriveGoogleAttribution(t *testing.T) {
	t.Run("NonGoogleReturnsNil", func(t *testing.T) {
		source := "newsletter"
		a := &models.Attribution{UTMSource: &source}
		g := DeriveGoogleAttribution(a, PageContext{Address: "https://friendumbrella.com/"})
		assert.Nil(t, g)
	})

	t.Run("DefaultsFillMissingTags", func(t *testing.T) {
		page := PageContext{Address: "https://friendumbrella.com/?gclid=Cj0KCQiA"}
		g := DeriveGoogleAttribution(&models.Attribution{}, page)
		require.NotNil(t, g)

		assert.Equal(t, models.GoogleDefaultSource, g.Source)
		assert.Equal(t, models.GoogleDefaultMedium, g.Medium)
		assert.Equal(t, models.GoogleDefaultCampaign, g.Campaign)
		require.NotNil(t, g.GCLID)
		assert.Equal(t, "Cj0KCQiA", *g.GCLID)
		assert.Equal(t, models.CampaignTypeSearch, g.CampaignType)
	})

	t.Run("ExplicitTagsWin", func(t *testing.T) {
		a := &models.Attribution{
			UTMSource:   utils.ToPtr("google"),
			UTMMedium:   utils.ToPtr("display"),
			UTMCampaign: utils.ToPtr("spring_launch"),
			UTMTerm:     utils.ToPtr("umbrella"),
			UTMContent:  utils.ToPtr("banner_300x250"),
		}
		page := PageContext{Address: "https://friendumbrella.com/?utm_source=google"}

		g := DeriveGoogleAttribution(a, page)
		require.NotNil(t, g)
		assert.Equal(t, "google", g.Source)
		assert.Equal(t, "display", g.Medium)
		assert.Equal(t, "spring_launch", g.Campaign)
		assert.Equal(t, models.CampaignTypeDisplay, g.CampaignType)
		require.NotNil(t, g.Keyword)
		assert.Equal(t, "umbrella", *g.Keyword)
		require.NotNil(t, g.AdGroup)
		assert.Equal(t, "banner_300x250", *g.AdGroup)
	})
}

func TestAttributionFlowCaptureAndResolve(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryAttributionStore(30 * time.Minute)
	flow := NewAttributionFlow(store)

	t.Run("CaptureStoresBothViews", func(t *testing.T) {
		page := PageContext{Address: "https://friendumbrella.com/?utm_source=google&utm_medium=cpc&utm_campaign=brand"}

		a, g := flow.Capture(ctx, "session-1", page)
		require.NotNil(t, a)
		require.NotNil(t, g)

		stored, err := store.LoadAttribution(ctx, "session-1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "google", *stored.UTMSource)

		storedGoogle, err := store.LoadGoogleAttribution(ctx, "session-1")
		require.NoError(t, err)
		require.NotNil(t, storedGoogle)
		assert.Equal(t, "brand", storedGoogle.Campaign)
	})

	t.Run("GclidOnlyVisitWritesBothViews", func(t *testing.T) {
		page := PageContext{Address: "https://friendumbrella.com/?gclid=Cj0KCQiA"}

		a, g := flow.Capture(ctx, "session-gclid", page)
		require.NotNil(t, g)
		assert.Equal(t, "Cj0KCQiA", *g.GCLID)

		// The derived defaults must land on the standard record too, so the
		// signup flattening sees an attributed session.
		require.NotNil(t, a)
		assert.Equal(t, models.GoogleDefaultSource, *a.UTMSource)
		assert.Equal(t, models.GoogleDefaultMedium, *a.UTMMedium)
		assert.Equal(t, models.GoogleDefaultCampaign, *a.UTMCampaign)

		stored, err := store.LoadAttribution(ctx, "session-gclid")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, models.GoogleDefaultSource, *stored.UTMSource)

		storedGoogle, err := store.LoadGoogleAttribution(ctx, "session-gclid")
		require.NoError(t, err)
		require.NotNil(t, storedGoogle)
	})

	t.Run("GoogleReferrerOnlyVisitWritesBothViews", func(t *testing.T) {
		page := PageContext{
			Address:  "https://friendumbrella.com/pricing",
			Referrer: "https://www.google.com/search?q=friend+umbrella",
		}

		a, _ := flow.Capture(ctx, "session-serp", page)
		require.NotNil(t, a)
		assert.Equal(t, models.GoogleDefaultSource, *a.UTMSource)

		stored, err := store.LoadAttribution(ctx, "session-serp")
		require.NoError(t, err)
		require.NotNil(t, stored)
	})

	t.Run("CaptureSkipsStoreWhenNothingAttributable", func(t *testing.T) {
		a, g := flow.Capture(ctx, "session-2", PageContext{Address: "https://friendumbrella.com/about"})
		assert.Nil(t, a)
		assert.Nil(t, g)

		stored, err := store.LoadAttribution(ctx, "session-2")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("ResolvePrefersStoredRecord", func(t *testing.T) {
		// Later page visit carries no tags; the stored capture must win
		a, _ := flow.Resolve(ctx, "session-1", PageContext{Address: "https://friendumbrella.com/pricing"})
		require.NotNil(t, a)
		assert.Equal(t, "google", *a.UTMSource)
	})

	t.Run("ResolveFallsBackToExtraction", func(t *testing.T) {
		page := PageContext{Address: "https://friendumbrella.com/?utm_source=twitter"}
		a, _ := flow.Resolve(ctx, "session-3", page)
		require.NotNil(t, a)
		assert.Equal(t, "twitter", *a.UTMSource)
	})

	t.Run("MalformedPageYieldsNoAttribution", func(t *testing.T) {
		a, g := flow.Resolve(ctx, "session-4", PageContext{Address: "https://friendumbrella.com/?x=%zz"})
		assert.Nil(t, a)
		assert.Nil(t, g)
	})
}
