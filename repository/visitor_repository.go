// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisitorRepositoryImpl implements VisitorRepository interface
type VisitorRepositoryImpl struct {
	*BaseRepository[models.Visitor, models.VisitorFilter]
}

// NewVisitorRepository creates a new visitor repository
func NewVisitorRepository(db *gorm.DB) VisitorRepository {
	return &VisitorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Visitor, models.VisitorFilter](db),
	}
}

// Save inserts a visitor, translating a unique-email violation into
// ErrDuplicateEmail.
func (r *VisitorRepositoryImpl) Save(ctx context.Context, entity *models.Visitor) error {
	err := r.BaseRepository.Save(ctx, entity)
	if err != nil && isDuplicateKeyError(err) {
		return fmt.Errorf("email %s: %w", entity.Email, ErrDuplicateEmail)
	}
	return err
}

// ByEmail retrieves a visitor by email address
func (r *VisitorRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Visitor, error) {
	filter := models.VisitorFilter{Email: &email}
	visitors, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find visitor by email: %w", err)
	}

	if len(visitors) == 0 {
		return nil, nil
	}

	return visitors[0], nil
}

// ByUUID retrieves a visitor by UUID string
func (r *VisitorRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Visitor, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid visitor uuid: %w", err)
	}

	filter := models.VisitorFilter{UUID: &parsed}
	visitors, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find visitor by uuid: %w", err)
	}

	if len(visitors) == 0 {
		return nil, nil
	}

	return visitors[0], nil
}

// UpdateLastLogin stamps the visitor's last login time
func (r *VisitorRepositoryImpl) UpdateLastLogin(ctx context.Context, visitorID uint) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Visitor{}).
		Where("id = ?", visitorID).
		Updates(map[string]any{
			"last_login_at": utils.UTCNow(),
			"updated_at":    utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// ByFilter retrieves visitors based on filter criteria
func (r *VisitorRepositoryImpl) ByFilter(ctx context.Context, filter models.VisitorFilter, orderBy string, limit, offset int) ([]*models.Visitor, error) {
	db := r.getDB(ctx)

	var visitors []*models.Visitor
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

	err := query.Find(&visitors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find visitors by filter: %w", err)
	}

	return visitors, nil
}

// Count returns the number of visitors matching the filter
func (r *VisitorRepositoryImpl) Count(ctx context.Context, filter models.VisitorFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Visitor{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}

	return count, nil
}

// Exists checks if any visitor matching the filter exists
func (r *VisitorRepositoryImpl) Exists(ctx context.Context, filter models.VisitorFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VisitorRepositoryImpl) applyFilter(db *gorm.DB, filter models.VisitorFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.LastLoginAfter != nil {
		db = db.Where("last_login_at >= ?", *filter.LastLoginAfter)
	}

	return db
}
