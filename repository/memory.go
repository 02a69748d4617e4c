// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/google/uuid"
)

// In-memory repository implementations used when no database is configured
// (demo mode) and by tests. Writes are guarded by a mutex; reads return
// copies so callers never share row memory with the store.

// MemoryWaitlistSignupRepository is an in-memory WaitlistSignupRepository
type MemoryWaitlistSignupRepository struct {
	mu      sync.RWMutex
	rows    []*models.WaitlistSignup
	byEmail map[string]uint
	nextID  uint
}

// NewMemoryWaitlistSignupRepository creates an empty in-memory waitlist store
func NewMemoryWaitlistSignupRepository() *MemoryWaitlistSignupRepository {
	return &MemoryWaitlistSignupRepository{
		byEmail: make(map[string]uint),
		nextID:  1,
	}
}

func (r *MemoryWaitlistSignupRepository) Save(ctx context.Context, entity *models.WaitlistSignup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(entity.Email)
	if _, ok := r.byEmail[key]; ok {
		return fmt.Errorf("email %s: %w", entity.Email, ErrDuplicateEmail)
	}

	entity.ID = r.nextID
	r.nextID++
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	stored := *entity
	r.rows = append(r.rows, &stored)
	r.byEmail[key] = entity.ID
	return nil
}

func (r *MemoryWaitlistSignupRepository) SaveBatch(ctx context.Context, entities []*models.WaitlistSignup) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryWaitlistSignupRepository) ByID(ctx context.Context, id uint) (*models.WaitlistSignup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryWaitlistSignupRepository) ByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryWaitlistSignupRepository) ByFilter(ctx context.Context, filter models.WaitlistSignupFilter, orderBy string, limit, offset int) ([]*models.WaitlistSignup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.WaitlistSignup
	for _, row := range r.rows {
		if matchesSignupFilter(row, filter) {
			copied := *row
			matched = append(matched, &copied)
		}
	}

	if strings.HasPrefix(orderBy, "created_at") {
		desc := strings.HasSuffix(orderBy, "DESC")
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}

	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *MemoryWaitlistSignupRepository) Count(ctx context.Context, filter models.WaitlistSignupFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryWaitlistSignupRepository) Exists(ctx context.Context, filter models.WaitlistSignupFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MemoryWaitlistSignupRepository) ListAttributed(ctx context.Context, limit int) ([]*models.WaitlistSignup, error) {
	attributed := true
	return r.ByFilter(ctx, models.WaitlistSignupFilter{HasAttribution: &attributed}, "created_at DESC", limit, 0)
}

func matchesSignupFilter(row *models.WaitlistSignup, f models.WaitlistSignupFilter) bool {
	if f.ID != nil && row.ID != *f.ID {
		return false
	}
	if f.UUID != nil && row.UUID != *f.UUID {
		return false
	}
	if f.Email != nil && !strings.EqualFold(row.Email, *f.Email) {
		return false
	}
	if f.Source != nil && row.Source != *f.Source {
		return false
	}
	if f.Variant != nil && row.Variant != *f.Variant {
		return false
	}
	if f.VisitorID != nil && (row.VisitorID == nil || *row.VisitorID != *f.VisitorID) {
		return false
	}
	if f.UTMSource != nil && (row.UTMSource == nil || *row.UTMSource != *f.UTMSource) {
		return false
	}
	if f.UTMMedium != nil && (row.UTMMedium == nil || *row.UTMMedium != *f.UTMMedium) {
		return false
	}
	if f.UTMCampaign != nil && (row.UTMCampaign == nil || *row.UTMCampaign != *f.UTMCampaign) {
		return false
	}
	if f.HasAttribution != nil && row.HasAttribution() != *f.HasAttribution {
		return false
	}
	if f.CreatedAfter != nil && row.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && row.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// MemoryVisitorRepository is an in-memory VisitorRepository
type MemoryVisitorRepository struct {
	mu      sync.RWMutex
	rows    []*models.Visitor
	byEmail map[string]uint
	nextID  uint
}

// NewMemoryVisitorRepository creates an empty in-memory visitor store
func NewMemoryVisitorRepository() *MemoryVisitorRepository {
	return &MemoryVisitorRepository{
		byEmail: make(map[string]uint),
		nextID:  1,
	}
}

func (r *MemoryVisitorRepository) Save(ctx context.Context, entity *models.Visitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(entity.Email)
	if _, ok := r.byEmail[key]; ok {
		return fmt.Errorf("email %s: %w", entity.Email, ErrDuplicateEmail)
	}

	entity.ID = r.nextID
	r.nextID++
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	stored := *entity
	r.rows = append(r.rows, &stored)
	r.byEmail[key] = entity.ID
	return nil
}

func (r *MemoryVisitorRepository) SaveBatch(ctx context.Context, entities []*models.Visitor) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryVisitorRepository) ByID(ctx context.Context, id uint) (*models.Visitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorRepository) ByEmail(ctx context.Context, email string) (*models.Visitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorRepository) ByUUID(ctx context.Context, id string) (*models.Visitor, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid visitor uuid: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.UUID == parsed {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorRepository) UpdateLastLogin(ctx context.Context, visitorID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range r.rows {
		if row.ID == visitorID {
			row.LastLoginAt = &now
			row.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("visitor %d not found", visitorID)
}

func (r *MemoryVisitorRepository) ByFilter(ctx context.Context, filter models.VisitorFilter, orderBy string, limit, offset int) ([]*models.Visitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Visitor
	for _, row := range r.rows {
		if matchesVisitorFilter(row, filter) {
			copied := *row
			matched = append(matched, &copied)
		}
	}

	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *MemoryVisitorRepository) Count(ctx context.Context, filter models.VisitorFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryVisitorRepository) Exists(ctx context.Context, filter models.VisitorFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchesVisitorFilter(row *models.Visitor, f models.VisitorFilter) bool {
	if f.ID != nil && row.ID != *f.ID {
		return false
	}
	if f.UUID != nil && row.UUID != *f.UUID {
		return false
	}
	if f.Email != nil && !strings.EqualFold(row.Email, *f.Email) {
		return false
	}
	if f.IsActive != nil && (row.IsActive == nil || *row.IsActive != *f.IsActive) {
		return false
	}
	if f.CreatedAfter != nil && row.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && row.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// MemoryVisitorSessionRepository is an in-memory VisitorSessionRepository
type MemoryVisitorSessionRepository struct {
	mu     sync.RWMutex
	rows   []*models.VisitorSession
	nextID uint
}

// NewMemoryVisitorSessionRepository creates an empty in-memory session store
func NewMemoryVisitorSessionRepository() *MemoryVisitorSessionRepository {
	return &MemoryVisitorSessionRepository{nextID: 1}
}

func (r *MemoryVisitorSessionRepository) Save(ctx context.Context, entity *models.VisitorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity.ID = r.nextID
	r.nextID++
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	stored := *entity
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *MemoryVisitorSessionRepository) SaveBatch(ctx context.Context, entities []*models.VisitorSession) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryVisitorSessionRepository) ByID(ctx context.Context, id uint) (*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorSessionRepository) BySessionToken(ctx context.Context, token string) (*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.SessionToken == token && row.IsValid() {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorSessionRepository) ByRefreshToken(ctx context.Context, token string) (*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.RefreshToken != nil && *row.RefreshToken == token && row.IsValid() {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryVisitorSessionRepository) ListActiveSessionsByVisitor(ctx context.Context, visitorID uint) ([]*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*models.VisitorSession
	for _, row := range r.rows {
		if row.VisitorID == visitorID && row.IsValid() {
			copied := *row
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

func (r *MemoryVisitorSessionRepository) ExpireSession(ctx context.Context, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	inactive := false
	for _, row := range r.rows {
		if row.ID == sessionID {
			row.IsActive = &inactive
			row.ExpiresAt = now
			return nil
		}
	}
	return fmt.Errorf("session %d not found", sessionID)
}

func (r *MemoryVisitorSessionRepository) ExpireAllVisitorSessions(ctx context.Context, visitorID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range r.rows {
		if row.VisitorID == visitorID {
			inactive := false
			row.IsActive = &inactive
			row.ExpiresAt = now
		}
	}
	return nil
}

func (r *MemoryVisitorSessionRepository) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.VisitorSession
	for _, row := range r.rows {
		if row.CorrelationID != correlationID {
			continue
		}
		if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *MemoryVisitorSessionRepository) ByFilter(ctx context.Context, filter models.VisitorSessionFilter, orderBy string, limit, offset int) ([]*models.VisitorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.VisitorSession
	for _, row := range r.rows {
		if matchesSessionFilter(row, filter) {
			copied := *row
			matched = append(matched, &copied)
		}
	}

	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *MemoryVisitorSessionRepository) Count(ctx context.Context, filter models.VisitorSessionFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryVisitorSessionRepository) Exists(ctx context.Context, filter models.VisitorSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func matchesSessionFilter(row *models.VisitorSession, f models.VisitorSessionFilter) bool {
	if f.ID != nil && row.ID != *f.ID {
		return false
	}
	if f.CorrelationID != nil && row.CorrelationID != *f.CorrelationID {
		return false
	}
	if f.VisitorID != nil && row.VisitorID != *f.VisitorID {
		return false
	}
	if f.IsActive != nil && (row.IsActive == nil || *row.IsActive != *f.IsActive) {
		return false
	}
	if f.IsExpired != nil && *f.IsExpired && !row.IsExpired() {
		return false
	}
	return true
}

// MemoryAuditLogRepository is an in-memory AuditLogRepository
type MemoryAuditLogRepository struct {
	mu     sync.RWMutex
	rows   []*models.AuditLog
	nextID uint
}

// NewMemoryAuditLogRepository creates an empty in-memory audit store
func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{nextID: 1}
}

func (r *MemoryAuditLogRepository) Save(ctx context.Context, entity *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity.ID = r.nextID
	r.nextID++
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	stored := *entity
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *MemoryAuditLogRepository) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryAuditLogRepository) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryAuditLogRepository) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.AuditLog
	for _, row := range r.rows {
		if matchesAuditFilter(row, filter) {
			copied := *row
			matched = append(matched, &copied)
		}
	}

	if strings.HasPrefix(orderBy, "created_at") && strings.HasSuffix(orderBy, "DESC") {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})
	}

	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *MemoryAuditLogRepository) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryAuditLogRepository) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MemoryAuditLogRepository) ListByVisitor(ctx context.Context, visitorID uint, limit, offset int) ([]*models.AuditLog, error) {
	filter := models.AuditLogFilter{VisitorID: &visitorID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

func (r *MemoryAuditLogRepository) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	filter := models.AuditLogFilter{Action: &action}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

func (r *MemoryAuditLogRepository) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	failed := false
	filter := models.AuditLogFilter{Success: &failed}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

func matchesAuditFilter(row *models.AuditLog, f models.AuditLogFilter) bool {
	if f.ID != nil && row.ID != *f.ID {
		return false
	}
	if f.VisitorID != nil && (row.VisitorID == nil || *row.VisitorID != *f.VisitorID) {
		return false
	}
	if f.Action != nil && row.Action != *f.Action {
		return false
	}
	if f.Success != nil && (row.Success == nil || *row.Success != *f.Success) {
		return false
	}
	if f.RequestID != nil && (row.RequestID == nil || *row.RequestID != *f.RequestID) {
		return false
	}
	return true
}
