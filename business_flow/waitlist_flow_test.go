package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/app/services"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWaitlistTestFlow(policy WaitlistPolicy) (WaitlistFlow, *repository.MemoryWaitlistSignupRepository, *repository.MemoryAuditLogRepository, *services.MemoryAttributionStore) {
	waitlistRepo := repository.NewMemoryWaitlistSignupRepository()
	auditRepo := repository.NewMemoryAuditLogRepository()
	store := services.NewMemoryAttributionStore(30 * time.Minute)
	attribution := NewAttributionFlow(store)

	flow := NewWaitlistFlow(waitlistRepo, auditRepo, attribution, policy, nil)
	return flow, waitlistRepo, auditRepo, store
}

func defaultWaitlistPolicy() WaitlistPolicy {
	return WaitlistPolicy{
		DefaultSource:  "landing_page",
		DefaultVariant: "A",
	}
}

func TestWaitlistJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulJoinWithDefaults", func(t *testing.T) {
		flow, waitlistRepo, auditRepo, _ := newWaitlistTestFlow(defaultWaitlistPolicy())

		req := &dto.JoinWaitlistRequest{Email: "Jordan@Example.com"}
		metadata := NewClientMetadata("203.0.113.10", "Mozilla/5.0")

		result, err := flow.Join(ctx, req, nil, "", PageContext{Address: "https://friendumbrella.com/"}, metadata)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "Successfully joined the waitlist!", result.Message)
		assert.NotEmpty(t, result.UUID)
		assert.False(t, result.DemoMode)

		// Email is normalized, defaults fill source and variant
		saved, repoErr := waitlistRepo.ByEmail(ctx, "jordan@example.com")
		require.NoError(t, repoErr)
		require.NotNil(t, saved)
		assert.Equal(t, "jordan@example.com", saved.Email)
		assert.Equal(t, "landing_page", saved.Source)
		assert.Equal(t, "A", saved.Variant)
		require.NotNil(t, saved.IPAddress)
		assert.Equal(t, "203.0.113.10", *saved.IPAddress)

		logs, repoErr := auditRepo.ListByAction(ctx, models.AuditActionWaitlistJoined, 10, 0)
		require.NoError(t, repoErr)
		require.Len(t, logs, 1)
		assert.True(t, utils.IsTrue(logs[0].Success))
	})

	t.Run("RequestIDCarriedIntoAuditTrail", func(t *testing.T) {
		flow, _, auditRepo, _ := newWaitlistTestFlow(defaultWaitlistPolicy())

		reqCtx := context.WithValue(ctx, RequestIDKey, "req-7f3a")
		req := &dto.JoinWaitlistRequest{Email: "casey@example.com"}

		_, err := flow.Join(reqCtx, req, nil, "", PageContext{Address: "https://friendumbrella.com/"}, NewClientMetadata("203.0.113.10", "Mozilla/5.0"))
		require.NoError(t, err)

		logs, repoErr := auditRepo.ListByAction(ctx, models.AuditActionWaitlistJoined, 10, 0)
		require.NoError(t, repoErr)
		require.Len(t, logs, 1)
		require.NotNil(t, logs[0].RequestID)
		assert.Equal(t, "req-7f3a", *logs[0].RequestID)
	})

	t.Run("ExplicitSourceAndVariantWin", func(t *testing.T) {
		flow, waitlistRepo, _, _ := newWaitlistTestFlow(defaultWaitlistPolicy())

		req := &dto.JoinWaitlistRequest{
			Email:   "variant@example.com",
			Source:  utils.ToPtr("partner_page"),
			Variant: utils.ToPtr("B"),
		}

		_, err := flow.Join(ctx, req, nil, "", PageContext{}, nil)
		require.NoError(t, err)

		saved, repoErr := waitlistRepo.ByEmail(ctx, "variant@example.com")
		require.NoError(t, repoErr)
		require.NotNil(t, saved)
		assert.Equal(t, "partner_page", saved.Source)
		assert.Equal(t, "B", saved.Variant)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		flow, waitlistRepo, auditRepo, _ := newWaitlistTestFlow(defaultWaitlistPolicy())

		first := &dto.JoinWaitlistRequest{Email: "taken@example.com"}
		_, err := flow.Join(ctx, first, nil, "", PageContext{}, nil)
		require.NoError(t, err)

		// Same email with different casing must still conflict
		second := &dto.JoinWaitlistRequest{Email: "Taken@Example.com"}
		result, err := flow.Join(ctx, second, nil, "", PageContext{}, nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsEmailAlreadyRegistered(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "EMAIL_ALREADY_REGISTERED", businessErr.Code)
		assert.Equal(t, "Email already registered!", businessErr.Message)

		// No second row was written
		count, repoErr := waitlistRepo.Count(ctx, models.WaitlistSignupFilter{})
		require.NoError(t, repoErr)
		assert.Equal(t, int64(1), count)

		rejected, repoErr := auditRepo.ListByAction(ctx, models.AuditActionWaitlistRejected, 10, 0)
		require.NoError(t, repoErr)
		require.Len(t, rejected, 1)
		assert.False(t, utils.IsTrue(rejected[0].Success))
	})

	t.Run("IdentityGateRejectsAnonymous", func(t *testing.T) {
		policy := defaultWaitlistPolicy()
		policy.RequireIdentity = true
		flow, waitlistRepo, auditRepo, _ := newWaitlistTestFlow(policy)

		req := &dto.JoinWaitlistRequest{Email: "anon@example.com"}
		result, err := flow.Join(ctx, req, nil, "", PageContext{}, nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsIdentityRequired(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "IDENTITY_REQUIRED", businessErr.Code)
		assert.Equal(t, "Please sign in to join the waitlist", businessErr.Message)

		// The gate rejects before any write happens
		count, repoErr := waitlistRepo.Count(ctx, models.WaitlistSignupFilter{})
		require.NoError(t, repoErr)
		assert.Zero(t, count)

		auditCount, repoErr := auditRepo.Count(ctx, models.AuditLogFilter{})
		require.NoError(t, repoErr)
		assert.Zero(t, auditCount)
	})

	t.Run("IdentityGateAdmitsIdentifiedVisitor", func(t *testing.T) {
		policy := defaultWaitlistPolicy()
		policy.RequireIdentity = true
		flow, waitlistRepo, _, _ := newWaitlistTestFlow(policy)

		identity := &Identity{VisitorID: 42, Email: "member@example.com"}
		req := &dto.JoinWaitlistRequest{Email: "member@example.com"}

		_, err := flow.Join(ctx, req, identity, "", PageContext{}, nil)
		require.NoError(t, err)

		saved, repoErr := waitlistRepo.ByEmail(ctx, "member@example.com")
		require.NoError(t, repoErr)
		require.NotNil(t, saved)
		require.NotNil(t, saved.VisitorID)
		assert.Equal(t, uint(42), *saved.VisitorID)
	})

	t.Run("SessionAttributionFlattenedOntoSignup", func(t *testing.T) {
		flow, waitlistRepo, _, store := newWaitlistTestFlow(defaultWaitlistPolicy())

		stored := &models.Attribution{
			UTMSource:   utils.ToPtr("google"),
			UTMMedium:   utils.ToPtr("cpc"),
			UTMCampaign: utils.ToPtr("brand"),
			CapturedAt:  utils.UTCNowRFC3339(),
		}
		require.NoError(t, store.SaveAttribution(ctx, "sess-attr", stored))

		req := &dto.JoinWaitlistRequest{Email: "attributed@example.com"}
		_, err := flow.Join(ctx, req, nil, "sess-attr", PageContext{Address: "https://friendumbrella.com/"}, nil)
		require.NoError(t, err)

		saved, repoErr := waitlistRepo.ByEmail(ctx, "attributed@example.com")
		require.NoError(t, repoErr)
		require.NotNil(t, saved)
		assert.True(t, saved.HasAttribution())
		assert.Equal(t, "google", *saved.UTMSource)
		assert.Equal(t, "cpc", *saved.UTMMedium)
		assert.Equal(t, "brand", *saved.UTMCampaign)
	})

	t.Run("ExplicitOverrideWinsOverStored", func(t *testing.T) {
		flow, waitlistRepo, _, store := newWaitlistTestFlow(defaultWaitlistPolicy())

		stored := &models.Attribution{
			UTMSource:  utils.ToPtr("google"),
			CapturedAt: utils.UTCNowRFC3339(),
		}
		require.NoError(t, store.SaveAttribution(ctx, "sess-override", stored))

		req := &dto.JoinWaitlistRequest{
			Email: "override@example.com",
			Attribution: &dto.AttributionDTO{
				UTMSource: utils.ToPtr("newsletter"),
				UTMMedium: utils.ToPtr("email"),
			},
		}

		_, err := flow.Join(ctx, req, nil, "sess-override", PageContext{}, nil)
		require.NoError(t, err)

		saved, repoErr := waitlistRepo.ByEmail(ctx, "override@example.com")
		require.NoError(t, repoErr)
		require.NotNil(t, saved)
		assert.Equal(t, "newsletter", *saved.UTMSource)
		assert.Equal(t, "email", *saved.UTMMedium)
	})

	t.Run("DemoModeSimulatesSignup", func(t *testing.T) {
		policy := defaultWaitlistPolicy()
		policy.DemoMode = true
		flow, waitlistRepo, _, _ := newWaitlistTestFlow(policy)

		req := &dto.JoinWaitlistRequest{Email: "demo@example.com"}
		result, err := flow.Join(ctx, req, nil, "", PageContext{}, nil)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.DemoMode)
		assert.Equal(t, "Demo mode: Your signup was simulated successfully!", result.Message)
		assert.NotEmpty(t, result.UUID)

		// Nothing is persisted in demo mode
		count, repoErr := waitlistRepo.Count(ctx, models.WaitlistSignupFilter{})
		require.NoError(t, repoErr)
		assert.Zero(t, count)
	})
}

func TestWaitlistCount(t *testing.T) {
	ctx := context.Background()

	t.Run("CountsPersistedSignups", func(t *testing.T) {
		flow, _, _, _ := newWaitlistTestFlow(defaultWaitlistPolicy())

		for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			_, err := flow.Join(ctx, &dto.JoinWaitlistRequest{Email: email}, nil, "", PageContext{}, nil)
			require.NoError(t, err)
		}

		result, err := flow.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Count)
		assert.False(t, result.DemoMode)
	})

	t.Run("DemoModeReturnsConfiguredCount", func(t *testing.T) {
		policy := defaultWaitlistPolicy()
		policy.DemoMode = true
		policy.DemoCount = 15000
		flow, _, _, _ := newWaitlistTestFlow(policy)

		result, err := flow.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(15000), result.Count)
		assert.True(t, result.DemoMode)
	})
}
