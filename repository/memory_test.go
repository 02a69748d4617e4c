package repository

import (
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignup(email string, createdAt time.Time, utmSource *string) *models.WaitlistSignup {
	return &models.WaitlistSignup{
		UUID:      uuid.New(),
		Email:     email,
		Source:    "landing_page",
		Variant:   "A",
		UTMSource: utmSource,
		CreatedAt: createdAt,
	}
}

func TestMemoryWaitlistSignupRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAssignsIDAndCreatedAt", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()

		signup := &models.WaitlistSignup{UUID: uuid.New(), Email: "a@example.com"}
		require.NoError(t, repo.Save(ctx, signup))
		assert.NotZero(t, signup.ID)
		assert.False(t, signup.CreatedAt.IsZero())
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()

		require.NoError(t, repo.Save(ctx, newSignup("dup@example.com", time.Time{}, nil)))

		err := repo.Save(ctx, newSignup("DUP@example.com", time.Time{}, nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateEmail)

		count, countErr := repo.Count(ctx, models.WaitlistSignupFilter{})
		require.NoError(t, countErr)
		assert.Equal(t, int64(1), count)
	})

	t.Run("ByEmailIsCaseInsensitive", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()
		require.NoError(t, repo.Save(ctx, newSignup("mixed@example.com", time.Time{}, nil)))

		found, err := repo.ByEmail(ctx, "MIXED@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "mixed@example.com", found.Email)
	})

	t.Run("RowsAreCopied", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()
		require.NoError(t, repo.Save(ctx, newSignup("copy@example.com", time.Time{}, nil)))

		first, err := repo.ByEmail(ctx, "copy@example.com")
		require.NoError(t, err)
		first.Email = "mutated@example.com"

		second, err := repo.ByEmail(ctx, "copy@example.com")
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, "copy@example.com", second.Email)
	})

	t.Run("ListAttributedFiltersAndOrders", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()

		t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		t2 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

		require.NoError(t, repo.Save(ctx, newSignup("old@example.com", t1, utils.ToPtr("google"))))
		require.NoError(t, repo.Save(ctx, newSignup("plain@example.com", t1, nil)))
		require.NoError(t, repo.Save(ctx, newSignup("new@example.com", t2, utils.ToPtr("newsletter"))))

		rows, err := repo.ListAttributed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "new@example.com", rows[0].Email)
		assert.Equal(t, "old@example.com", rows[1].Email)

		limited, err := repo.ListAttributed(ctx, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "new@example.com", limited[0].Email)
	})

	t.Run("ByFilterMatchesUTMFields", func(t *testing.T) {
		repo := NewMemoryWaitlistSignupRepository()

		require.NoError(t, repo.Save(ctx, newSignup("g@example.com", time.Time{}, utils.ToPtr("google"))))
		require.NoError(t, repo.Save(ctx, newSignup("n@example.com", time.Time{}, utils.ToPtr("newsletter"))))

		rows, err := repo.ByFilter(ctx, models.WaitlistSignupFilter{UTMSource: utils.ToPtr("google")}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "g@example.com", rows[0].Email)

		exists, err := repo.Exists(ctx, models.WaitlistSignupFilter{UTMSource: utils.ToPtr("newsletter")})
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestMemoryVisitorRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndLookup", func(t *testing.T) {
		repo := NewMemoryVisitorRepository()

		visitor := &models.Visitor{
			UUID:     uuid.New(),
			Email:    "visitor@example.com",
			IsActive: utils.ToPtr(true),
		}
		require.NoError(t, repo.Save(ctx, visitor))

		byEmail, err := repo.ByEmail(ctx, "visitor@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)

		byUUID, err := repo.ByUUID(ctx, visitor.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, byUUID)
		assert.Equal(t, visitor.ID, byUUID.ID)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		repo := NewMemoryVisitorRepository()

		require.NoError(t, repo.Save(ctx, &models.Visitor{UUID: uuid.New(), Email: "taken@example.com"}))
		err := repo.Save(ctx, &models.Visitor{UUID: uuid.New(), Email: "taken@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("UpdateLastLogin", func(t *testing.T) {
		repo := NewMemoryVisitorRepository()

		visitor := &models.Visitor{UUID: uuid.New(), Email: "login@example.com"}
		require.NoError(t, repo.Save(ctx, visitor))

		require.NoError(t, repo.UpdateLastLogin(ctx, visitor.ID))

		updated, err := repo.ByID(ctx, visitor.ID)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.NotNil(t, updated.LastLoginAt)
	})
}

func TestMemoryVisitorSessionRepository(t *testing.T) {
	ctx := context.Background()

	newSession := func(visitorID uint, token string) *models.VisitorSession {
		return &models.VisitorSession{
			CorrelationID: uuid.New(),
			VisitorID:     visitorID,
			SessionToken:  token,
			IsActive:      utils.ToPtr(true),
			ExpiresAt:     time.Now().UTC().Add(time.Hour),
		}
	}

	t.Run("BySessionTokenIgnoresExpired", func(t *testing.T) {
		repo := NewMemoryVisitorSessionRepository()

		session := newSession(1, "token-live")
		require.NoError(t, repo.Save(ctx, session))

		expired := newSession(1, "token-expired")
		expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.Save(ctx, expired))

		found, err := repo.BySessionToken(ctx, "token-live")
		require.NoError(t, err)
		require.NotNil(t, found)

		gone, err := repo.BySessionToken(ctx, "token-expired")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("ExpireSession", func(t *testing.T) {
		repo := NewMemoryVisitorSessionRepository()

		session := newSession(2, "token-expire-me")
		require.NoError(t, repo.Save(ctx, session))

		require.NoError(t, repo.ExpireSession(ctx, session.ID))

		found, err := repo.BySessionToken(ctx, "token-expire-me")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ExpireAllVisitorSessions", func(t *testing.T) {
		repo := NewMemoryVisitorSessionRepository()

		require.NoError(t, repo.Save(ctx, newSession(3, "t1")))
		require.NoError(t, repo.Save(ctx, newSession(3, "t2")))
		require.NoError(t, repo.Save(ctx, newSession(4, "t3")))

		require.NoError(t, repo.ExpireAllVisitorSessions(ctx, 3))

		mine, err := repo.ListActiveSessionsByVisitor(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, mine)

		theirs, err := repo.ListActiveSessionsByVisitor(ctx, 4)
		require.NoError(t, err)
		assert.Len(t, theirs, 1)
	})
}

func TestMemoryAuditLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditLogRepository()

	visitorID := uint(5)
	require.NoError(t, repo.Save(ctx, &models.AuditLog{
		VisitorID: &visitorID,
		Action:    models.AuditActionWaitlistJoined,
		Success:   utils.ToPtr(true),
	}))
	require.NoError(t, repo.Save(ctx, &models.AuditLog{
		Action:  models.AuditActionWaitlistRejected,
		Success: utils.ToPtr(false),
	}))

	byAction, err := repo.ListByAction(ctx, models.AuditActionWaitlistJoined, 10, 0)
	require.NoError(t, err)
	require.Len(t, byAction, 1)

	byVisitor, err := repo.ListByVisitor(ctx, visitorID, 10, 0)
	require.NoError(t, err)
	require.Len(t, byVisitor, 1)

	failed, err := repo.ListFailedActions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.AuditActionWaitlistRejected, failed[0].Action)
}
