// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisitorSessionRepositoryImpl implements VisitorSessionRepository interface
type VisitorSessionRepositoryImpl struct {
	*BaseRepository[models.VisitorSession, models.VisitorSessionFilter]
}

// NewVisitorSessionRepository creates a new visitor session repository
func NewVisitorSessionRepository(db *gorm.DB) VisitorSessionRepository {
	return &VisitorSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VisitorSession, models.VisitorSessionFilter](db),
	}
}

// BySessionToken retrieves an active, unexpired session by session token
func (r *VisitorSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.VisitorSession, error) {
	db := r.getDB(ctx)

	var session models.VisitorSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("Visitor").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves an active, unexpired session by refresh token
func (r *VisitorSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.VisitorSession, error) {
	db := r.getDB(ctx)

	var session models.VisitorSession
	err := db.Where("refresh_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("Visitor").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ListActiveSessionsByVisitor retrieves all active sessions for a visitor
func (r *VisitorSessionRepositoryImpl) ListActiveSessionsByVisitor(ctx context.Context, visitorID uint) ([]*models.VisitorSession, error) {
	active := true
	filter := models.VisitorSessionFilter{
		VisitorID: &visitorID,
		IsActive:  &active,
	}

	sessions, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions by visitor: %w", err)
	}

	// Filter out expired sessions
	var activeSessions []*models.VisitorSession
	now := time.Now()
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			activeSessions = append(activeSessions, session)
		}
	}

	return activeSessions, nil
}

// ExpireSession creates a new expired session record (insert-only approach)
func (r *VisitorSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var session models.VisitorSession
	err = db.Last(&session, sessionID).Error
	if err != nil {
		return fmt.Errorf("failed to find session to expire: %w", err)
	}

	now := time.Now()
	expiredSession := models.VisitorSession{
		CorrelationID:  session.CorrelationID,
		VisitorID:      session.VisitorID,
		SessionToken:   session.SessionToken + "_expired",
		RefreshToken:   nil, // Clear refresh token on expiration
		DeviceInfo:     session.DeviceInfo,
		IPAddress:      session.IPAddress,
		UserAgent:      session.UserAgent,
		IsActive:       utils.ToPtr(false),
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: now,
		ExpiresAt:      now,
	}

	err = db.Create(&expiredSession).Error
	if err != nil {
		return fmt.Errorf("failed to create expired session record: %w", err)
	}

	return nil
}

// ExpireAllVisitorSessions expires all sessions for a visitor (insert-only approach)
func (r *VisitorSessionRepositoryImpl) ExpireAllVisitorSessions(ctx context.Context, visitorID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var sessions []models.VisitorSession
	err = db.Where("visitor_id = ? AND is_active = ?", visitorID, true).
		Find(&sessions).Error
	if err != nil {
		return fmt.Errorf("failed to find visitor sessions: %w", err)
	}

	now := time.Now()
	for _, session := range sessions {
		expiredSession := models.VisitorSession{
			CorrelationID:  session.CorrelationID,
			VisitorID:      session.VisitorID,
			SessionToken:   session.SessionToken + "_expired",
			RefreshToken:   nil, // Clear refresh token on expiration
			DeviceInfo:     session.DeviceInfo,
			IPAddress:      session.IPAddress,
			UserAgent:      session.UserAgent,
			IsActive:       utils.ToPtr(false),
			CreatedAt:      session.CreatedAt,
			LastAccessedAt: now,
			ExpiresAt:      now,
		}

		err = db.Create(&expiredSession).Error
		if err != nil {
			return fmt.Errorf("failed to create expired session record: %w", err)
		}
	}

	return nil
}

// GetLatestByCorrelationID retrieves the newest session record in a correlation chain
func (r *VisitorSessionRepositoryImpl) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.VisitorSession, error) {
	db := r.getDB(ctx)

	var session models.VisitorSession
	err := db.Where("correlation_id = ?", correlationID).
		Order("created_at DESC").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by correlation id: %w", err)
	}

	return &session, nil
}

// ByFilter retrieves sessions based on filter criteria
func (r *VisitorSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.VisitorSessionFilter, orderBy string, limit, offset int) ([]*models.VisitorSession, error) {
	db := r.getDB(ctx)

	var sessions []*models.VisitorSession
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions by filter: %w", err)
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *VisitorSessionRepositoryImpl) Count(ctx context.Context, filter models.VisitorSessionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.VisitorSession{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *VisitorSessionRepositoryImpl) Exists(ctx context.Context, filter models.VisitorSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VisitorSessionRepositoryImpl) applyFilter(db *gorm.DB, filter models.VisitorSessionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.VisitorID != nil {
		db = db.Where("visitor_id = ?", *filter.VisitorID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IPAddress != nil {
		db = db.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		db = db.Where("expires_at >= ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	if filter.IsExpired != nil && *filter.IsExpired {
		db = db.Where("expires_at <= ?", time.Now())
	}

	return db
}
