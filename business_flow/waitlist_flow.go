// Package businessflow contains the core business logic and use cases for waitlist and attribution workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistPolicy carries the configurable behavior of the waitlist
type WaitlistPolicy struct {
	DefaultSource   string
	DefaultVariant  string
	RequireIdentity bool
	DemoMode        bool
	DemoCount       int64
}

// WaitlistFlow handles waitlist signup business logic
type WaitlistFlow interface {
	Join(ctx context.Context, req *dto.JoinWaitlistRequest, identity *Identity, sessionID string, page PageContext, metadata *ClientMetadata) (*dto.JoinWaitlistResponse, error)
	Count(ctx context.Context) (*dto.WaitlistCountResponse, error)
}

// WaitlistFlowImpl implements the waitlist business flow
type WaitlistFlowImpl struct {
	waitlistRepo repository.WaitlistSignupRepository
	auditRepo    repository.AuditLogRepository
	attribution  AttributionFlow
	policy       WaitlistPolicy
	db           *gorm.DB
}

// NewWaitlistFlow creates a new waitlist flow instance
func NewWaitlistFlow(
	waitlistRepo repository.WaitlistSignupRepository,
	auditRepo repository.AuditLogRepository,
	attribution AttributionFlow,
	policy WaitlistPolicy,
	db *gorm.DB,
) WaitlistFlow {
	return &WaitlistFlowImpl{
		waitlistRepo: waitlistRepo,
		auditRepo:    auditRepo,
		attribution:  attribution,
		policy:       policy,
		db:           db,
	}
}

// Join handles a waitlist submission end to end: identity gate, attribution
// resolution, persistence with uniqueness enforcement, audit logging.
func (w *WaitlistFlowImpl) Join(ctx context.Context, req *dto.JoinWaitlistRequest, identity *Identity, sessionID string, page PageContext, metadata *ClientMetadata) (*dto.JoinWaitlistResponse, error) {
	// The identity gate rejects locally, before any store or repository call
	if w.policy.RequireIdentity && identity == nil {
		return nil, NewBusinessError("IDENTITY_REQUIRED", "Please sign in to join the waitlist", ErrIdentityRequired)
	}

	if w.policy.DemoMode {
		return &dto.JoinWaitlistResponse{
			Message:  "Demo mode: Your signup was simulated successfully!",
			UUID:     uuid.New().String(),
			DemoMode: true,
		}, nil
	}

	// Explicit override wins over stored or freshly extracted attribution
	attribution := FromAttributionDTO(req.Attribution)
	var google *models.GoogleAttribution
	if attribution != nil {
		if attribution.CapturedAt == "" {
			attribution.CapturedAt = utils.UTCNowRFC3339()
		}
		google = DeriveGoogleAttribution(attribution, page)
	} else {
		attribution, google = w.attribution.Resolve(ctx, sessionID, page)
	}

	signup := &models.WaitlistSignup{
		UUID:    uuid.New(),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Source:  utils.FirstNonEmpty(utils.DerefOr(req.Source, ""), w.policy.DefaultSource),
		Variant: utils.FirstNonEmpty(utils.DerefOr(req.Variant, ""), w.policy.DefaultVariant),
	}
	if identity != nil {
		visitorID := identity.VisitorID
		signup.VisitorID = &visitorID
	}
	signup.ApplyAttribution(attribution)
	signup.ApplyGoogleAttribution(google)
	if metadata != nil {
		if metadata.IPAddress != "" {
			signup.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			signup.UserAgent = &metadata.UserAgent
		}
	}

	err := w.withTransaction(ctx, func(txCtx context.Context) error {
		return w.waitlistRepo.Save(txCtx, signup)
	})

	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			errMsg := fmt.Sprintf("Duplicate waitlist signup rejected: %s", signup.Email)
			_ = w.createAuditLog(ctx, identity, models.AuditActionWaitlistRejected, errMsg, false, &errMsg, metadata)

			return nil, NewBusinessError("EMAIL_ALREADY_REGISTERED", "Email already registered!", ErrEmailAlreadyRegistered)
		}

		errMsg := fmt.Sprintf("Waitlist signup failed: %s", err.Error())
		_ = w.createAuditLog(ctx, identity, models.AuditActionWaitlistRejected, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("WAITLIST_JOIN_FAILED", "Failed to join the waitlist", err)
	}

	msg := fmt.Sprintf("Waitlist signup created: %d", signup.ID)
	_ = w.createAuditLog(ctx, identity, models.AuditActionWaitlistJoined, msg, true, nil, metadata)

	return &dto.JoinWaitlistResponse{
		Message:   "Successfully joined the waitlist!",
		SignupID:  signup.ID,
		UUID:      signup.UUID.String(),
		CreatedAt: signup.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Count returns the total number of waitlist signups
func (w *WaitlistFlowImpl) Count(ctx context.Context) (*dto.WaitlistCountResponse, error) {
	if w.policy.DemoMode {
		return &dto.WaitlistCountResponse{
			Count:    w.policy.DemoCount,
			DemoMode: true,
		}, nil
	}

	count, err := w.waitlistRepo.Count(ctx, models.WaitlistSignupFilter{})
	if err != nil {
		return nil, NewBusinessError("WAITLIST_COUNT_FAILED", "Failed to count waitlist signups", err)
	}

	return &dto.WaitlistCountResponse{Count: count}, nil
}

// withTransaction wraps fn in a database transaction when a database is
// configured; in-memory stores run fn directly.
func (w *WaitlistFlowImpl) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	if w.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, w.db, fn)
}

func (w *WaitlistFlowImpl) createAuditLog(ctx context.Context, identity *Identity, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var visitorID *uint
	if identity != nil {
		id := identity.VisitorID
		visitorID = &id
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

	return w.auditRepo.Save(ctx, audit)
}
