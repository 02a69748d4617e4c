// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/friendumbrella/landing-api/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// ErrDuplicateEmail is returned when an insert violates an email uniqueness
// constraint. All implementations translate their driver's duplicate-key
// error into this sentinel.
var ErrDuplicateEmail = errors.New("email already exists")

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// WaitlistSignupRepository defines operations for waitlist entries
type WaitlistSignupRepository interface {
	Repository[models.WaitlistSignup, models.WaitlistSignupFilter]
	ByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error)
	ListAttributed(ctx context.Context, limit int) ([]*models.WaitlistSignup, error)
}

// VisitorRepository defines operations for visitors
type VisitorRepository interface {
	Repository[models.Visitor, models.VisitorFilter]
	ByEmail(ctx context.Context, email string) (*models.Visitor, error)
	ByUUID(ctx context.Context, uuid string) (*models.Visitor, error)
	UpdateLastLogin(ctx context.Context, visitorID uint) error
}

// VisitorSessionRepository defines operations for visitor sessions
type VisitorSessionRepository interface {
	Repository[models.VisitorSession, models.VisitorSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.VisitorSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.VisitorSession, error)
	ListActiveSessionsByVisitor(ctx context.Context, visitorID uint) ([]*models.VisitorSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllVisitorSessions(ctx context.Context, visitorID uint) error
	GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.VisitorSession, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByVisitor(ctx context.Context, visitorID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
