package services

import (
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAttributionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndLoadAttribution", func(t *testing.T) {
		store := NewMemoryAttributionStore(time.Minute)

		a := &models.Attribution{
			UTMSource:   utils.ToPtr("newsletter"),
			UTMMedium:   utils.ToPtr("email"),
			UTMCampaign: utils.ToPtr("weekly_update"),
			CapturedAt:  utils.UTCNowRFC3339(),
		}

		require.NoError(t, store.SaveAttribution(ctx, "sess-1", a))

		loaded, err := store.LoadAttribution(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "newsletter", *loaded.UTMSource)
		assert.Equal(t, "email", *loaded.UTMMedium)
		assert.Equal(t, "weekly_update", *loaded.UTMCampaign)
	})

	t.Run("MissingSessionLoadsNil", func(t *testing.T) {
		store := NewMemoryAttributionStore(time.Minute)

		loaded, err := store.LoadAttribution(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		google, err := store.LoadGoogleAttribution(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, google)
	})

	t.Run("GoogleViewStoredSeparately", func(t *testing.T) {
		store := NewMemoryAttributionStore(time.Minute)

		g := &models.GoogleAttribution{
			Source:       "google_ads",
			Medium:       "cpc",
			Campaign:     "brand",
			CampaignType: models.CampaignTypeSearch,
			CapturedAt:   utils.UTCNowRFC3339(),
		}
		require.NoError(t, store.SaveGoogleAttribution(ctx, "sess-2", g))

		loaded, err := store.LoadGoogleAttribution(ctx, "sess-2")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "brand", loaded.Campaign)

		// The standard record was never written for this session
		a, err := store.LoadAttribution(ctx, "sess-2")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("EntriesExpire", func(t *testing.T) {
		store := NewMemoryAttributionStore(10 * time.Millisecond)

		a := &models.Attribution{UTMSource: utils.ToPtr("blog")}
		require.NoError(t, store.SaveAttribution(ctx, "sess-3", a))

		time.Sleep(20 * time.Millisecond)

		loaded, err := store.LoadAttribution(ctx, "sess-3")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("ClearRemovesBothViews", func(t *testing.T) {
		store := NewMemoryAttributionStore(time.Minute)

		require.NoError(t, store.SaveAttribution(ctx, "sess-4", &models.Attribution{UTMSource: utils.ToPtr("x")}))
		require.NoError(t, store.SaveGoogleAttribution(ctx, "sess-4", &models.GoogleAttribution{Source: "google_ads"}))

		require.NoError(t, store.Clear(ctx, "sess-4"))

		a, err := store.LoadAttribution(ctx, "sess-4")
		require.NoError(t, err)
		assert.Nil(t, a)

		g, err := store.LoadGoogleAttribution(ctx, "sess-4")
		require.NoError(t, err)
		assert.Nil(t, g)
	})
}
