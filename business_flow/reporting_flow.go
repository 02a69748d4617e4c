// Package businessflow contains the core business logic and use cases for waitlist and attribution workflows
package businessflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/friendumbrella/landing-api/app/dto"
	"github.com/friendumbrella/landing-api/models"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/friendumbrella/landing-api/utils"
	"github.com/xuri/excelize/v2"
)

const recentSignupsLimit = 10

// ReportingFlow builds the attribution report for the dashboard
type ReportingFlow interface {
	Report(ctx context.Context) (*dto.UTMReportResponse, error)
	ExportReport(ctx context.Context) (string, []byte, error)
}

// ReportingFlowImpl implements the attribution reporting flow
type ReportingFlowImpl struct {
	waitlistRepo repository.WaitlistSignupRepository
	fetchLimit   int
	demoMode     bool
}

// NewReportingFlow creates a new reporting flow instance
func NewReportingFlow(waitlistRepo repository.WaitlistSignupRepository, fetchLimit int, demoMode bool) ReportingFlow {
	if fetchLimit <= 0 {
		fetchLimit = 1000
	}
	return &ReportingFlowImpl{
		waitlistRepo: waitlistRepo,
		fetchLimit:   fetchLimit,
		demoMode:     demoMode,
	}
}

// Report fetches attributed signups and the total count concurrently, then
// aggregates in memory: per-source counts, per-medium counts, and campaign
// summaries keyed by the (source, medium, campaign) triple.
func (r *ReportingFlowImpl) Report(ctx context.Context) (*dto.UTMReportResponse, error) {
	var (
		wg       sync.WaitGroup
		rows     []*models.WaitlistSignup
		total    int64
		rowsErr  error
		totalErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, rowsErr = r.waitlistRepo.ListAttributed(ctx, r.fetchLimit)
	}()
	go func() {
		defer wg.Done()
		total, totalErr = r.waitlistRepo.Count(ctx, models.WaitlistSignupFilter{})
	}()
	wg.Wait()

	if rowsErr != nil {
		return nil, NewBusinessError("REPORT_FETCH_FAILED", "Failed to fetch attributed signups", rowsErr)
	}
	if totalErr != nil {
		return nil, NewBusinessError("REPORT_COUNT_FAILED", "Failed to count signups", totalErr)
	}

	report := &dto.UTMReportResponse{
		TotalSignups:      total,
		AttributedSignups: len(rows),
		Sources:           make(map[string]int),
		Mediums:           make(map[string]int),
		DemoMode:          r.demoMode,
		GeneratedAt:       utils.UTCNowRFC3339(),
	}

	type campaignKey struct {
		source, medium, campaign string
	}
	summaries := make(map[campaignKey]*dto.CampaignSummaryDTO)

	for _, row := range rows {
		source := utils.DerefOr(row.UTMSource, "direct")
		medium := utils.DerefOr(row.UTMMedium, "none")
		campaign := utils.DerefOr(row.UTMCampaign, "none")
		createdAt := row.CreatedAt.Format(time.RFC3339)

		report.Sources[source]++
		report.Mediums[medium]++

		key := campaignKey{source, medium, campaign}
		summary, ok := summaries[key]
		if !ok {
			summary = &dto.CampaignSummaryDTO{
				Source:   source,
				Medium:   medium,
				Campaign: campaign,
			}
			summaries[key] = summary
		}
		summary.Count++
		// RFC3339 timestamps in UTC order lexicographically
		if createdAt > summary.LatestSignup {
			summary.LatestSignup = createdAt
		}

		if len(report.RecentSignups) < recentSignupsLimit {
			report.RecentSignups = append(report.RecentSignups, dto.RecentSignupDTO{
				Email:       row.Email,
				Source:      row.Source,
				UTMSource:   row.UTMSource,
				UTMMedium:   row.UTMMedium,
				UTMCampaign: row.UTMCampaign,
				CreatedAt:   createdAt,
			})
		}
	}

	report.Campaigns = make([]dto.CampaignSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		report.Campaigns = append(report.Campaigns, *summary)
	}
	sort.Slice(report.Campaigns, func(i, j int) bool {
		if report.Campaigns[i].Count != report.Campaigns[j].Count {
			return report.Campaigns[i].Count > report.Campaigns[j].Count
		}
		return report.Campaigns[i].LatestSignup > report.Campaigns[j].LatestSignup
	})

	return report, nil
}

// ExportReport renders the report as an XLSX workbook
func (r *ReportingFlowImpl) ExportReport(ctx context.Context) (string, []byte, error) {
	report, err := r.Report(ctx)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	campaignSheet := "Campaigns"
	xl.SetSheetName(xl.GetSheetName(0), campaignSheet)

	header := []string{"source", "medium", "campaign", "signups", "latest_signup"}
	_ = xl.SetSheetRow(campaignSheet, "A1", &header)
	for i, c := range report.Campaigns {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		record := []any{c.Source, c.Medium, c.Campaign, c.Count, c.LatestSignup}
		_ = xl.SetSheetRow(campaignSheet, cellRef, &record)
	}

	sourceSheet := "Sources"
	_, _ = xl.NewSheet(sourceSheet)
	sourceHeader := []string{"source", "signups"}
	_ = xl.SetSheetRow(sourceSheet, "A1", &sourceHeader)
	for i, source := range sortedKeys(report.Sources) {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		record := []any{source, report.Sources[source]}
		_ = xl.SetSheetRow(sourceSheet, cellRef, &record)
	}

	mediumSheet := "Mediums"
	_, _ = xl.NewSheet(mediumSheet)
	mediumHeader := []string{"medium", "signups"}
	_ = xl.SetSheetRow(mediumSheet, "A1", &mediumHeader)
	for i, medium := range sortedKeys(report.Mediums) {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		record := []any{medium, report.Mediums[medium]}
		_ = xl.SetSheetRow(mediumSheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("REPORT_EXPORT_FAILED", "Failed to build report workbook", err)
	}

	filename := fmt.Sprintf("utm_report_%s.xlsx", utils.UTCNowFormat("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
