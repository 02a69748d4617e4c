// Package businessflow contains the core business logic and use cases for waitlist and attribution workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/app/services"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow handles visitor identity: account creation, sign-in, sign-out, and
// identity resolution for the waitlist gate.
type AuthFlow interface {
	SignUp(ctx context.Context, req *dto.AuthSignupRequest, metadata *ClientMetadata) (*dto.AuthSignupResponse, error)
	SignIn(ctx context.Context, req *dto.AuthLoginRequest, metadata *ClientMetadata) (*dto.AuthLoginResponse, error)
	SignOut(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
	CurrentIdentity(ctx context.Context, sessionToken string) (*Identity, *models.Visitor, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	visitorRepo  repository.VisitorRepository
	sessionRepo  repository.VisitorSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	visitorRepo repository.VisitorRepository,
	sessionRepo repository.VisitorSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		visitorRepo:  visitorRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// SignUp creates a visitor account and an initial session
func (a *AuthFlowImpl) SignUp(ctx context.Context, req *dto.AuthSignupRequest, metadata *ClientMetadata) (*dto.AuthSignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var visitor *models.Visitor
	var session *models.VisitorSession

	err := a.withTransaction(ctx, func(txCtx context.Context) error {
		existing, err := a.visitorRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		visitor = &models.Visitor{
			UUID:         uuid.New(),
			Email:        email,
			PasswordHash: string(passwordHash),
			DisplayName:  req.DisplayName,
			IsActive:     utils.ToPtr(true),
		}
		if err := a.visitorRepo.Save(txCtx, visitor); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrEmailAlreadyExists
			}
			return err
		}

		session, err = a.createSession(txCtx, visitor.ID, metadata)
		return err
	})

	if err != nil {
		if IsEmailAlreadyExists(err) {
			return nil, NewBusinessError("EMAIL_ALREADY_REGISTERED", "Email already registered!", ErrEmailAlreadyExists)
		}

		errMsg := fmt.Sprintf("Account creation failed: %s", err.Error())
		_ = a.createAuditLog(ctx, nil, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SIGNUP_FAILED", "Account creation failed", err)
	}

	msg := fmt.Sprintf("Account created: %d", visitor.ID)
	_ = a.createAuditLog(ctx, visitor, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	return &dto.AuthSignupResponse{
		Message: "Account created successfully!",
		Visitor: ToAuthVisitorDTO(*visitor),
		Session: ToVisitorSessionDTO(*session),
	}, nil
}

// SignIn verifies credentials and rotates the visitor's session. Failures are
// reported uniformly so callers cannot probe which emails have accounts.
func (a *AuthFlowImpl) SignIn(ctx context.Context, req *dto.AuthLoginRequest, metadata *ClientMetadata) (*dto.AuthLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var visitor *models.Visitor
	var session *models.VisitorSession

	err := a.withTransaction(ctx, func(txCtx context.Context) error {
		var err error
		visitor, err = a.visitorRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if visitor == nil {
			return ErrVisitorNotFound
		}

		if !utils.IsTrue(visitor.IsActive) {
			return ErrAccountInactive
		}

		if err := bcrypt.CompareHashAndPassword([]byte(visitor.PasswordHash), []byte(req.Password)); err != nil {
			return ErrIncorrectPassword
		}

		if err := a.sessionRepo.ExpireAllVisitorSessions(txCtx, visitor.ID); err != nil {
			return err
		}

		session, err = a.createSession(txCtx, visitor.ID, metadata)
		if err != nil {
			return err
		}

		return a.visitorRepo.UpdateLastLogin(txCtx, visitor.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Sign-in failed: %s", err.Error())
		_ = a.createAuditLog(ctx, visitor, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		// Uniform response for unknown email and wrong password
		if IsVisitorNotFound(err) || IsIncorrectPassword(err) {
			return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrIncorrectPassword)
		}
		if IsAccountInactive(err) {
			return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
		}
		return nil, NewBusinessError("LOGIN_FAILED", "Sign-in failed", err)
	}

	msg := fmt.Sprintf("Visitor signed in: %d", visitor.ID)
	_ = a.createAuditLog(ctx, visitor, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return &dto.AuthLoginResponse{
		Message: "Signed in successfully!",
		Visitor: ToAuthVisitorDTO(*visitor),
		Session: ToVisitorSessionDTO(*session),
	}, nil
}

// SignOut revokes the presented token and expires its session
func (a *AuthFlowImpl) SignOut(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	var visitor *models.Visitor

	err := a.withTransaction(ctx, func(txCtx context.Context) error {
		session, err := a.sessionRepo.BySessionToken(txCtx, sessionToken)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}

		visitor, err = a.visitorRepo.ByID(txCtx, session.VisitorID)
		if err != nil {
			return err
		}

		if err := a.sessionRepo.ExpireSession(txCtx, session.ID); err != nil {
			return err
		}

		return a.tokenService.RevokeToken(sessionToken)
	})

	if err != nil {
		if IsSessionNotFound(err) {
			return nil, NewBusinessError("SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
		}
		return nil, NewBusinessError("LOGOUT_FAILED", "Sign-out failed", err)
	}

	_ = a.createAuditLog(ctx, visitor, models.AuditActionLogout, "Visitor signed out", true, nil, metadata)

	return &dto.LogoutResponse{Message: "Signed out successfully"}, nil
}

// CurrentIdentity resolves a bearer token to the visitor identity. An invalid
// or expired token yields a nil identity, not an error.
func (a *AuthFlowImpl) CurrentIdentity(ctx context.Context, sessionToken string) (*Identity, *models.Visitor, error) {
	if sessionToken == "" {
		return nil, nil, nil
	}

	claims, err := a.tokenService.ValidateToken(sessionToken)
	if err != nil {
		return nil, nil, nil
	}
	if claims.TokenType != "access" {
		return nil, nil, nil
	}

	session, err := a.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, nil
	}

	visitor, err := a.visitorRepo.ByID(ctx, claims.VisitorID)
	if err != nil {
		return nil, nil, err
	}
	if visitor == nil || !utils.IsTrue(visitor.IsActive) {
		return nil, nil, nil
	}

	return &Identity{VisitorID: visitor.ID, Email: visitor.Email}, visitor, nil
}

func (a *AuthFlowImpl) createSession(ctx context.Context, visitorID uint, metadata *ClientMetadata) (*models.VisitorSession, error) {
	accessToken, refreshToken, err := a.tokenService.GenerateTokens(visitorID)
	if err != nil {
		return nil, err
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.VisitorSession{
		CorrelationID: uuid.New(),
		VisitorID:     visitorID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     utils.UTCNowAdd(utils.SessionTimeout),
	}

	if err := a.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (a *AuthFlowImpl) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	if a.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, a.db, fn)
}

func (a *AuthFlowImpl) createAuditLog(ctx context.Context, visitor *models.Visitor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var visitorID *uint
	if visitor != nil {
		visitorID = &visitor.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		VisitorID:    visitorID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return a.auditRepo.Save(ctx, audit)
}
