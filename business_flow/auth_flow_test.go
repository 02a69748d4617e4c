package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/app/services"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestFlow(t *testing.T) (AuthFlow, *repository.MemoryVisitorRepository, *repository.MemoryVisitorSessionRepository) {
	t.Helper()

	visitorRepo := repository.NewMemoryVisitorRepository()
	sessionRepo := repository.NewMemoryVisitorSessionRepository()
	auditRepo := repository.NewMemoryAuditLogRepository()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-hmac-signing",
	)
	require.NoError(t, err)

	flow := NewAuthFlow(visitorRepo, sessionRepo, auditRepo, tokenService, nil)
	return flow, visitorRepo, sessionRepo
}

func signUpTestVisitor(t *testing.T, flow AuthFlow, email string) *dto.AuthSignupResponse {
	t.Helper()

	result, err := flow.SignUp(context.Background(), &dto.AuthSignupRequest{
		Email:           email,
		Password:        "SecurePass123",
		ConfirmPassword: "SecurePass123",
		DisplayName:     utils.ToPtr("Jordan Tester"),
	}, NewClientMetadata("203.0.113.10", "Mozilla/5.0"))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestAuthSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulSignup", func(t *testing.T) {
		flow, visitorRepo, _ := newAuthTestFlow(t)

		result := signUpTestVisitor(t, flow, "New@Example.com")
		assert.Equal(t, "Account created successfully!", result.Message)
		assert.Equal(t, "new@example.com", result.Visitor.Email)
		assert.NotEmpty(t, result.Session.SessionToken)
		require.NotNil(t, result.Session.RefreshToken)
		assert.Equal(t, "Bearer", result.Session.TokenType)

		visitor, err := visitorRepo.ByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		require.NotNil(t, visitor)
		assert.True(t, utils.IsTrue(visitor.IsActive))
		// Password is stored hashed
		assert.NotEqual(t, "SecurePass123", visitor.PasswordHash)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)

		signUpTestVisitor(t, flow, "taken@example.com")

		_, err := flow.SignUp(ctx, &dto.AuthSignupRequest{
			Email:           "Taken@example.com",
			Password:        "SecurePass123",
			ConfirmPassword: "SecurePass123",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyExists(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "EMAIL_ALREADY_REGISTERED", businessErr.Code)
	})
}

func TestAuthSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulSignIn", func(t *testing.T) {
		flow, visitorRepo, _ := newAuthTestFlow(t)
		signUpTestVisitor(t, flow, "member@example.com")

		result, err := flow.SignIn(ctx, &dto.AuthLoginRequest{
			Email:    "member@example.com",
			Password: "SecurePass123",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Signed in successfully!", result.Message)
		assert.NotEmpty(t, result.Session.SessionToken)

		visitor, repoErr := visitorRepo.ByEmail(ctx, "member@example.com")
		require.NoError(t, repoErr)
		assert.NotNil(t, visitor.LastLoginAt)
	})

	t.Run("WrongPasswordAndUnknownEmailLookAlike", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)
		signUpTestVisitor(t, flow, "probe@example.com")

		_, wrongPassErr := flow.SignIn(ctx, &dto.AuthLoginRequest{
			Email:    "probe@example.com",
			Password: "WrongPass123",
		}, nil)
		require.Error(t, wrongPassErr)

		_, unknownErr := flow.SignIn(ctx, &dto.AuthLoginRequest{
			Email:    "nobody@example.com",
			Password: "SecurePass123",
		}, nil)
		require.Error(t, unknownErr)

		var wrongPass, unknown *BusinessError
		require.ErrorAs(t, wrongPassErr, &wrongPass)
		require.ErrorAs(t, unknownErr, &unknown)
		assert.Equal(t, wrongPass.Code, unknown.Code)
		assert.Equal(t, wrongPass.Message, unknown.Message)
		assert.Equal(t, "INVALID_CREDENTIALS", wrongPass.Code)
	})

	t.Run("SignInRotatesSessions", func(t *testing.T) {
		flow, _, sessionRepo := newAuthTestFlow(t)
		first := signUpTestVisitor(t, flow, "rotate@example.com")

		second, err := flow.SignIn(ctx, &dto.AuthLoginRequest{
			Email:    "rotate@example.com",
			Password: "SecurePass123",
		}, nil)
		require.NoError(t, err)

		// The signup session is expired by the new sign-in
		old, repoErr := sessionRepo.BySessionToken(ctx, first.Session.SessionToken)
		require.NoError(t, repoErr)
		assert.Nil(t, old)

		live, repoErr := sessionRepo.BySessionToken(ctx, second.Session.SessionToken)
		require.NoError(t, repoErr)
		assert.NotNil(t, live)
	})
}

func TestAuthSignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulSignOut", func(t *testing.T) {
		flow, _, sessionRepo := newAuthTestFlow(t)
		result := signUpTestVisitor(t, flow, "leaver@example.com")

		logout, err := flow.SignOut(ctx, result.Session.SessionToken, nil)
		require.NoError(t, err)
		assert.Equal(t, "Signed out successfully", logout.Message)

		gone, repoErr := sessionRepo.BySessionToken(ctx, result.Session.SessionToken)
		require.NoError(t, repoErr)
		assert.Nil(t, gone)
	})

	t.Run("UnknownTokenRejected", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)

		_, err := flow.SignOut(ctx, "no-such-token", nil)
		require.Error(t, err)
		assert.True(t, IsSessionNotFound(err))
	})
}

func TestCurrentIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("ResolvesActiveSession", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)
		result := signUpTestVisitor(t, flow, "whoami@example.com")

		identity, visitor, err := flow.CurrentIdentity(ctx, result.Session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, identity)
		require.NotNil(t, visitor)
		assert.Equal(t, "whoami@example.com", identity.Email)
		assert.Equal(t, visitor.ID, identity.VisitorID)
	})

	t.Run("EmptyTokenIsAnonymous", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)

		identity, visitor, err := flow.CurrentIdentity(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, identity)
		assert.Nil(t, visitor)
	})

	t.Run("GarbageTokenIsAnonymous", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)

		identity, visitor, err := flow.CurrentIdentity(ctx, "not-a-token")
		require.NoError(t, err)
		assert.Nil(t, identity)
		assert.Nil(t, visitor)
	})

	t.Run("SignedOutTokenIsAnonymous", func(t *testing.T) {
		flow, _, _ := newAuthTestFlow(t)
		result := signUpTestVisitor(t, flow, "stale@example.com")

		_, err := flow.SignOut(ctx, result.Session.SessionToken, nil)
		require.NoError(t, err)

		identity, visitor, err := flow.CurrentIdentity(ctx, result.Session.SessionToken)
		require.NoError(t, err)
		assert.Nil(t, identity)
		assert.Nil(t, visitor)
	})
}
