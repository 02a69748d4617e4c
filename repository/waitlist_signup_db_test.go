package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/models"
	testingutil "github.com/friendumbrella/landing-api/testing"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the gorm-backed repository against a real Postgres. Skipped unless
// a test database is configured via TEST_DB_* env.
func TestWaitlistSignupRepositoryDB(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST not set, skipping database tests")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		repo := NewWaitlistSignupRepository(testDB.DB)

		t.Run("SaveAndLookup", func(t *testing.T) {
			signup := &models.WaitlistSignup{
				UUID:      uuid.New(),
				Email:     "db@example.com",
				Source:    "landing_page",
				Variant:   "A",
				UTMSource: utils.ToPtr("google"),
			}
			require.NoError(t, repo.Save(ctx, signup))
			assert.NotZero(t, signup.ID)

			found, err := repo.ByEmail(ctx, "db@example.com")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, signup.UUID, found.UUID)
			require.NotNil(t, found.UTMSource)
			assert.Equal(t, "google", *found.UTMSource)
		})

		t.Run("DuplicateEmailTranslated", func(t *testing.T) {
			fixtures := testingutil.NewTestFixtures(testDB)
			_, err := fixtures.CreateTestSignup("dup@example.com", &models.Attribution{
				UTMSource: utils.ToPtr("newsletter"),
			})
			require.NoError(t, err)

			dup := &models.WaitlistSignup{
				UUID:    uuid.New(),
				Email:   "dup@example.com",
				Source:  "landing_page",
				Variant: "A",
			}
			err = repo.Save(ctx, dup)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDuplicateEmail))

			count, countErr := repo.Count(ctx, models.WaitlistSignupFilter{Email: utils.ToPtr("dup@example.com")})
			require.NoError(t, countErr)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ListAttributedNewestFirst", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			for i, email := range []string{"first@example.com", "second@example.com"} {
				signup := &models.WaitlistSignup{
					UUID:      uuid.New(),
					Email:     email,
					Source:    "landing_page",
					Variant:   "A",
					UTMSource: utils.ToPtr("newsletter"),
					CreatedAt: time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
				}
				require.NoError(t, repo.Save(ctx, signup))
			}
			plain := &models.WaitlistSignup{
				UUID:    uuid.New(),
				Email:   "plain@example.com",
				Source:  "landing_page",
				Variant: "A",
			}
			require.NoError(t, repo.Save(ctx, plain))

			rows, err := repo.ListAttributed(ctx, 10)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "second@example.com", rows[0].Email)
		})

		t.Run("TransactionRollsBack", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			txErr := WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				signup := &models.WaitlistSignup{
					UUID:    uuid.New(),
					Email:   "rollback@example.com",
					Source:  "landing_page",
					Variant: "A",
				}
				if err := repo.Save(txCtx, signup); err != nil {
					return err
				}
				return errors.New("force rollback")
			})
			require.Error(t, txErr)

			found, err := repo.ByEmail(ctx, "rollback@example.com")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVisitorRepositoriesDB(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST not set, skipping database tests")
	}

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		visitorRepo := NewVisitorRepository(testDB.DB)
		sessionRepo := NewVisitorSessionRepository(testDB.DB)

		t.Run("VisitorLookup", func(t *testing.T) {
			visitor, err := fixtures.CreateTestVisitor()
			require.NoError(t, err)

			found, err := visitorRepo.ByEmail(ctx, visitor.Email)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, visitor.UUID, found.UUID)

			byUUID, err := visitorRepo.ByUUID(ctx, visitor.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, byUUID)
		})

		t.Run("SessionLifecycle", func(t *testing.T) {
			visitor, err := fixtures.CreateTestVisitor()
			require.NoError(t, err)

			session, err := fixtures.CreateTestSession(visitor.ID)
			require.NoError(t, err)

			live, err := sessionRepo.BySessionToken(ctx, session.SessionToken)
			require.NoError(t, err)
			require.NotNil(t, live)

			require.NoError(t, sessionRepo.ExpireSession(ctx, session.ID))

			gone, err := sessionRepo.BySessionToken(ctx, session.SessionToken)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})

		t.Run("AuditTrail", func(t *testing.T) {
			auditRepo := NewAuditLogRepository(testDB.DB)

			visitor, err := fixtures.CreateTestVisitor()
			require.NoError(t, err)

			_, err = fixtures.CreateTestAuditLog(&visitor.ID, models.AuditActionWaitlistJoined, true)
			require.NoError(t, err)
			_, err = fixtures.CreateTestAuditLog(&visitor.ID, models.AuditActionWaitlistRejected, false)
			require.NoError(t, err)

			mine, err := auditRepo.ListByVisitor(ctx, visitor.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, mine, 2)

			failed, err := auditRepo.ListFailedActions(ctx, 10, 0)
			require.NoError(t, err)
			require.NotEmpty(t, failed)
			assert.Equal(t, models.AuditActionWaitlistRejected, failed[0].Action)
		})

		return nil
	})
	require.NoError(t, err)
}
