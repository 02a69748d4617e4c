package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedSignup(t *testing.T, repo *repository.MemoryWaitlistSignupRepository, email string, createdAt time.Time, source, medium, campaign *string) {
	t.Helper()

	signup := &models.WaitlistSignup{
		UUID:        uuid.New(),
		Email:       email,
		Source:      "landing_page",
		Variant:     "A",
		UTMSource:   source,
		UTMMedium:   medium,
		UTMCampaign: campaign,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Save(context.Background(), signup))
}

func TestReportingFlowReport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWaitlistSignupRepository()

	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

	google := utils.ToPtr("google")
	cpc := utils.ToPtr("cpc")
	brand := utils.ToPtr("brand")
	newsletter := utils.ToPtr("newsletter")
	email := utils.ToPtr("email")
	weekly := utils.ToPtr("weekly_update")

	seedSignup(t, repo, "one@example.com", t1, google, cpc, brand)
	seedSignup(t, repo, "two@example.com", t2, google, cpc, brand)
	seedSignup(t, repo, "three@example.com", t3, google, cpc, brand)
	seedSignup(t, repo, "four@example.com", t2, newsletter, email, weekly)
	// Attributed row missing medium and campaign falls into the none buckets
	seedSignup(t, repo, "five@example.com", t1, google, nil, nil)
	// Unattributed row counts toward the total only
	seedSignup(t, repo, "six@example.com", t1, nil, nil, nil)

	flow := NewReportingFlow(repo, 1000, false)

	report, err := flow.Report(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, int64(6), report.TotalSignups)
	assert.Equal(t, 5, report.AttributedSignups)

	assert.Equal(t, 4, report.Sources["google"])
	assert.Equal(t, 1, report.Sources["newsletter"])
	assert.Equal(t, 1, report.Mediums["email"])
	assert.Equal(t, 3, report.Mediums["cpc"])
	assert.Equal(t, 1, report.Mediums["none"])

	require.Len(t, report.Campaigns, 3)

	// Sorted by signup count descending, so the brand campaign leads
	top := report.Campaigns[0]
	assert.Equal(t, "google", top.Source)
	assert.Equal(t, "cpc", top.Medium)
	assert.Equal(t, "brand", top.Campaign)
	assert.Equal(t, 3, top.Count)
	assert.Equal(t, t3.Format(time.RFC3339), top.LatestSignup)

	assert.Len(t, report.RecentSignups, 5)
	assert.NotEmpty(t, report.GeneratedAt)
	assert.False(t, report.DemoMode)
}

func TestReportingFlowReportEmpty(t *testing.T) {
	flow := NewReportingFlow(repository.NewMemoryWaitlistSignupRepository(), 1000, false)

	report, err := flow.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalSignups)
	assert.Zero(t, report.AttributedSignups)
	assert.Empty(t, report.Campaigns)
	assert.Empty(t, report.RecentSignups)
}

func TestReportingFlowExportReport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWaitlistSignupRepository()

	seedSignup(t, repo, "export@example.com",
		time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC),
		utils.ToPtr("google"), utils.ToPtr("cpc"), utils.ToPtr("brand"))

	flow := NewReportingFlow(repo, 1000, false)

	filename, data, err := flow.ExportReport(ctx)
	require.NoError(t, err)
	assert.Contains(t, filename, "utm_report_")
	assert.Contains(t, filename, ".xlsx")
	require.NotEmpty(t, data)

	// The workbook must open and carry the three report sheets
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	assert.Contains(t, sheets, "Campaigns")
	assert.Contains(t, sheets, "Sources")
	assert.Contains(t, sheets, "Mediums")

	campaign, err := xl.GetCellValue("Campaigns", "C2")
	require.NoError(t, err)
	assert.Equal(t, "brand", campaign)
}
