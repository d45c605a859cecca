// Package revenue folds resolved per-user fee amounts into the
// seller-facing dashboard metrics: per-referral-code totals, trailing
// time buckets, conversion rate, and period growth.
package revenue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/domain/services/fees"
	"github.com/referral-service/referral_service/pkg/logger"
)

const (
	dailyWindowDays   = 30
	monthlyWindowSize = 12
)

// ProfileLister reads referral profiles for aggregation
type ProfileLister interface {
	ListByReferralCode(ctx context.Context, referralCode string) ([]entities.UserProfile, error)
	ListRegisteredSince(ctx context.Context, since time.Time) ([]entities.UserProfile, error)
}

// Service aggregates resolved amounts into revenue metrics
type Service struct {
	profiles ProfileLister
	resolver CohortResolver
	now      func() time.Time
	logger   *logger.Logger
}

// CohortResolver is the narrow resolver surface the aggregator needs
type CohortResolver interface {
	ResolveForCohort(ctx context.Context, userIDs []uuid.UUID, categories []entities.FeeCategory) (*fees.CohortResult, error)
}

// NewService creates a revenue aggregation service
func NewService(profiles ProfileLister, resolver CohortResolver, log *logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		resolver: resolver,
		now:      time.Now,
		logger:   log,
	}
}

// SummaryForSeller builds the full revenue summary for one referral code
func (s *Service) SummaryForSeller(ctx context.Context, referralCode string) (*entities.RevenueSummary, error) {
	cohort, err := s.profiles.ListByReferralCode(ctx, referralCode)
	if err != nil {
		return nil, fmt.Errorf("list referrals for %s: %w", referralCode, err)
	}
	return s.summarize(ctx, cohort)
}

// GlobalSummary builds the summary across all referrals registered in
// the trailing year (the widest window any bucket needs).
func (s *Service) GlobalSummary(ctx context.Context) (*entities.RevenueSummary, error) {
	since := s.now().AddDate(-1, 0, 0)
	cohort, err := s.profiles.ListRegisteredSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list referrals since %s: %w", since.Format(time.RFC3339), err)
	}
	return s.summarize(ctx, cohort)
}

func (s *Service) summarize(ctx context.Context, cohort []entities.UserProfile) (*entities.RevenueSummary, error) {
	resolved, err := s.resolveCohort(ctx, cohort)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &entities.RevenueSummary{
		TotalReferrals: len(cohort),
		TotalRevenue:   decimal.Zero,
		GeneratedAt:    now,
	}

	for _, user := range resolved {
		if user.Profile.Completed() {
			summary.CompletedReferrals++
		}
		summary.TotalRevenue = summary.TotalRevenue.Add(userTotal(user))
	}

	summary.ConversionRate = ConversionRate(summary.CompletedReferrals, summary.TotalReferrals)
	summary.AverageCommission = averageCommission(summary.TotalRevenue, summary.CompletedReferrals)
	summary.BySeller = s.bySeller(resolved)
	summary.Daily = s.dailyBuckets(resolved, now)
	summary.Monthly = s.monthlyBuckets(resolved, now)
	summary.GrowthPct = monthGrowth(summary.Monthly)

	return summary, nil
}

// resolveCohort resolves amounts for the cohort, restricted per user to
// the categories whose backend paid-flag is set. Unpaid categories are
// never resolved: a default amount for an unpaid fee would be phantom
// revenue. Users whose resolution failed are dropped from aggregation.
func (s *Service) resolveCohort(ctx context.Context, cohort []entities.UserProfile) ([]entities.ResolvedUser, error) {
	if len(cohort) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(cohort))
	for i := range cohort {
		ids = append(ids, cohort[i].ID)
	}

	result, err := s.resolver.ResolveForCohort(ctx, ids, entities.CoreFeeCategories)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	for userID, userErr := range result.Errors {
		s.logger.Warn("Referral dropped from revenue aggregation",
			"user_id", userID, "error", userErr)
	}

	out := make([]entities.ResolvedUser, 0, len(cohort))
	for i := range cohort {
		profile := &cohort[i]
		userAmounts, ok := result.Amounts[profile.ID]

		paid := make(map[entities.FeeCategory]entities.ResolvedAmount)
		if ok {
			for category, resolved := range userAmounts {
				if profile.CategoryPaid(category) {
					paid[category] = resolved
				}
			}
		}
		out = append(out, entities.ResolvedUser{Profile: profile, Amounts: paid})
	}
	return out, nil
}

func (s *Service) bySeller(resolved []entities.ResolvedUser) []entities.SellerRevenue {
	grouped := make(map[string]*entities.SellerRevenue)

	for _, user := range resolved {
		if user.Profile.ReferralCode == nil || *user.Profile.ReferralCode == "" {
			continue
		}
		code := *user.Profile.ReferralCode

		row, ok := grouped[code]
		if !ok {
			row = &entities.SellerRevenue{ReferralCode: code, TotalRevenue: decimal.Zero}
			grouped[code] = row
		}

		row.TotalReferrals++
		if user.Profile.Completed() {
			row.CompletedReferrals++
		}
		row.TotalRevenue = row.TotalRevenue.Add(userTotal(user))
	}

	out := make([]entities.SellerRevenue, 0, len(grouped))
	for _, row := range grouped {
		row.ConversionRate = ConversionRate(row.CompletedReferrals, row.TotalReferrals)
		row.AverageCommission = averageCommission(row.TotalRevenue, row.CompletedReferrals)
		out = append(out, *row)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
	})
	return out
}

// dailyBuckets attributes revenue to the referral's registration day
// over a trailing 30-day window. Registration, not payment: revenue
// belongs to the month the referral signed up.
func (s *Service) dailyBuckets(resolved []entities.ResolvedUser, now time.Time) []entities.TimeBucket {
	start := now.AddDate(0, 0, -(dailyWindowDays - 1)).Truncate(24 * time.Hour)

	buckets := make([]entities.TimeBucket, dailyWindowDays)
	index := make(map[string]int, dailyWindowDays)
	for i := 0; i < dailyWindowDays; i++ {
		label := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = entities.TimeBucket{Label: label, Revenue: decimal.Zero}
		index[label] = i
	}

	for _, user := range resolved {
		label := user.Profile.CreatedAt.Format("2006-01-02")
		i, ok := index[label]
		if !ok {
			continue
		}
		buckets[i].Referrals++
		buckets[i].Revenue = buckets[i].Revenue.Add(userTotal(user))
	}
	return buckets
}

func (s *Service) monthlyBuckets(resolved []entities.ResolvedUser, now time.Time) []entities.TimeBucket {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthlyWindowSize - 1), 0)

	buckets := make([]entities.TimeBucket, monthlyWindowSize)
	index := make(map[string]int, monthlyWindowSize)
	for i := 0; i < monthlyWindowSize; i++ {
		label := first.AddDate(0, i, 0).Format("2006-01")
		buckets[i] = entities.TimeBucket{Label: label, Revenue: decimal.Zero}
		index[label] = i
	}

	for _, user := range resolved {
		label := user.Profile.CreatedAt.Format("2006-01")
		i, ok := index[label]
		if !ok {
			continue
		}
		buckets[i].Referrals++
		buckets[i].Revenue = buckets[i].Revenue.Add(userTotal(user))
	}
	return buckets
}

func userTotal(user entities.ResolvedUser) decimal.Decimal {
	total := decimal.Zero
	for _, resolved := range user.Amounts {
		total = total.Add(resolved.Amount)
	}
	return total
}

// ConversionRate is completed/total as a percentage, two decimals
func ConversionRate(completed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func averageCommission(totalRevenue decimal.Decimal, completed int) decimal.Decimal {
	if completed == 0 {
		return decimal.Zero
	}
	return totalRevenue.Div(decimal.NewFromInt(int64(completed))).Round(2)
}

// Growth is the period-over-period change as a percentage. A zero
// previous period reads as +100% when the current period has revenue,
// else 0%.
func Growth(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.GreaterThan(decimal.Zero) {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

// monthGrowth compares the two most recent monthly buckets
func monthGrowth(monthly []entities.TimeBucket) decimal.Decimal {
	if len(monthly) < 2 {
		return decimal.Zero
	}
	previous := monthly[len(monthly)-2].Revenue
	current := monthly[len(monthly)-1].Revenue
	return Growth(previous, current)
}
