// Package testing provides test utilities and database setup for testing the landing API
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestVisitor creates a visitor account with a bcrypt password hash
func (tf *TestFixtures) CreateTestVisitor() (*models.Visitor, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := "Jordan Tester"
	visitor := &models.Visitor{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("visitor.%d@example.com", mrand.Intn(10000000)),
		PasswordHash: string(hashedPassword),
		DisplayName:  &displayName,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(visitor).Error; err != nil {
		return nil, fmt.Errorf("failed to create test visitor: %w", err)
	}

	return visitor, nil
}

// CreateTestSignup creates a waitlist signup, optionally with attribution
func (tf *TestFixtures) CreateTestSignup(email string, attribution *models.Attribution) (*models.WaitlistSignup, error) {
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	signup := &models.WaitlistSignup{
		UUID:      uuid.New(),
		Email:     email,
		Source:    "landing_page",
		Variant:   "A",
		IPAddress: &ipAddress,
		UserAgent: &userAgent,
	}
	if attribution != nil {
		signup.ApplyAttribution(attribution)
	}

	if err := tf.DB.DB.Create(signup).Error; err != nil {
		return nil, fmt.Errorf("failed to create test signup: %w", err)
	}

	return signup, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a test visitor session
func (tf *TestFixtures) CreateTestSession(visitorID uint) (*models.VisitorSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"

	session := &models.VisitorSession{
		CorrelationID: uuid.New(),
		VisitorID:     visitorID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     utils.UTCNowAdd(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(visitorID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		VisitorID:   visitorID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
