// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/friendumbrella/landing-api/models"
	"gorm.io/gorm"
)

// WaitlistSignupRepositoryImpl implements WaitlistSignupRepository interface
type WaitlistSignupRepositoryImpl struct {
	*BaseRepository[models.WaitlistSignup, models.WaitlistSignupFilter]
}

// NewWaitlistSignupRepository creates a new waitlist signup repository
func NewWaitlistSignupRepository(db *gorm.DB) WaitlistSignupRepository {
	return &WaitlistSignupRepositoryImpl{
		BaseRepository: NewBaseRepository[models.WaitlistSignup, models.WaitlistSignupFilter](db),
	}
}

// Save inserts a waitlist entry, translating a unique-email violation into
// ErrDuplicateEmail so callers never depend on driver error codes.
func (r *WaitlistSignupRepositoryImpl) Save(ctx context.Context, entity *models.WaitlistSignup) error {
	err := r.BaseRepository.Save(ctx, entity)
	if err != nil && isDuplicateKeyError(err) {
		return fmt.Errorf("email %s: %w", entity.Email, ErrDuplicateEmail)
	}
	return err
}

// ByEmail retrieves a waitlist entry by email address
func (r *WaitlistSignupRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	filter := models.WaitlistSignupFilter{Email: &email}
	signups, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find signup by email: %w", err)
	}

	if len(signups) == 0 {
		return nil, nil
	}

	return signups[0], nil
}

// ListAttributed retrieves the newest signups that carry UTM attribution
func (r *WaitlistSignupRepositoryImpl) ListAttributed(ctx context.Context, limit int) ([]*models.WaitlistSignup, error) {
	attributed := true
	filter := models.WaitlistSignupFilter{HasAttribution: &attributed}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, 0)
}

// ByFilter retrieves waitlist entries based on filter criteria
func (r *WaitlistSignupRepositoryImpl) ByFilter(ctx context.Context, filter models.WaitlistSignupFilter, orderBy string, limit, offset int) ([]*models.WaitlistSignup, error) {
	db := r.getDB(ctx)

	var signups []*models.WaitlistSignup
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

	err := query.Find(&signups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find signups by filter: %w", err)
	}

	return signups, nil
}

// Count returns the number of waitlist entries matching the filter
func (r *WaitlistSignupRepositoryImpl) Count(ctx context.Context, filter models.WaitlistSignupFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.WaitlistSignup{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count signups: %w", err)
	}

	return count, nil
}

// Exists checks if any waitlist entry matching the filter exists
func (r *WaitlistSignupRepositoryImpl) Exists(ctx context.Context, filter models.WaitlistSignupFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *WaitlistSignupRepositoryImpl) applyFilter(db *gorm.DB, filter models.WaitlistSignupFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Source != nil {
		db = db.Where("source = ?", *filter.Source)
	}
	if filter.Variant != nil {
		db = db.Where("variant = ?", *filter.Variant)
	}
	if filter.VisitorID != nil {
		db = db.Where("visitor_id = ?", *filter.VisitorID)
	}
	if filter.UTMSource != nil {
		db = db.Where("utm_source = ?", *filter.UTMSource)
	}
	if filter.UTMMedium != nil {
		db = db.Where("utm_medium = ?", *filter.UTMMedium)
	}
	if filter.UTMCampaign != nil {
		db = db.Where("utm_campaign = ?", *filter.UTMCampaign)
	}
	if filter.HasAttribution != nil {
		if *filter.HasAttribution {
			db = db.Where("utm_source IS NOT NULL OR utm_medium IS NOT NULL OR utm_campaign IS NOT NULL OR utm_term IS NOT NULL OR utm_content IS NOT NULL")
		} else {
			db = db.Where("utm_source IS NULL AND utm_medium IS NULL AND utm_campaign IS NULL AND utm_term IS NULL AND utm_content IS NULL")
		}
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}

	return db
}

// isDuplicateKeyError recognizes unique-constraint violations across the
// gorm error translation layer and the raw Postgres 23505 error.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
