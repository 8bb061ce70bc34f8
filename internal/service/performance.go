package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
)

const (
	dbTimeout          = 5 * time.Second
	defaultConcurrency = 8
)

// PerformanceService serves every performance view. Aggregation is
// delegated to the scoring package and recomputed on each call.
type PerformanceService struct {
	ratings     RatingRepository
	staff       StaffRepository
	branches    BranchRepository
	accounts    AccountRepository
	logger      *zap.Logger
	sfGroup     singleflight.Group
	now         func() time.Time
	aggOpts     []scoring.Option
	concurrency int
	dbTimeout   time.Duration
}

type PerformanceOption func(*PerformanceService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PerformanceOption {
	return func(s *PerformanceService) { s.now = now }
}

func WithMissingCategoryPolicy(policy scoring.MissingCategoryPolicy) PerformanceOption {
	return func(s *PerformanceService) {
		s.aggOpts = append(s.aggOpts, scoring.WithMissingCategories(policy))
	}
}

// WithConcurrency bounds the parallel rating fetches of overviews.
func WithConcurrency(n int) PerformanceOption {
	return func(s *PerformanceService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDBTimeout bounds each individual repository call.
func WithDBTimeout(d time.Duration) PerformanceOption {
	return func(s *PerformanceService) {
		if d > 0 {
			s.dbTimeout = d
		}
	}
}

func NewPerformanceService(repos Repositories, logger *zap.Logger, opts ...PerformanceOption) *PerformanceService {
	if repos.Ratings == nil || repos.Staff == nil || repos.Branches == nil || repos.Accounts == nil {
		panic("performance service requires ratings, staff, branch and account repositories")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &PerformanceService{
		ratings:     repos.Ratings,
		staff:       repos.Staff,
		branches:    repos.Branches,
		accounts:    repos.Accounts,
		logger:      logger.Named("performance"),
		now:         time.Now,
		concurrency: defaultConcurrency,
		dbTimeout:   dbTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns now truncated to the second so concurrent identical reads
// share one rating fetch.
func (s *PerformanceService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// fetchRatings loads a staff member's ratings since the given instant.
// Identical in-flight fetches are collapsed into one repository call.
func (s *PerformanceService) fetchRatings(ctx context.Context, staffID string, since time.Time) ([]scoring.Rating, error) {
	key := staffID + "|" + since.UTC().Format(time.RFC3339Nano)
	v, err, shared := s.sfGroup.Do(key, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dbTimeout)
		defer cancel()

		records, err := s.ratings.ListRatings(dbCtx, staffID, since)
		if err != nil {
			return nil, mapRepoErr("list ratings", err)
		}
		return toScoringRatings(records), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("singleflight shared rating fetch", zap.String("staff_id", staffID))
	}
	return v.([]scoring.Rating), nil
}

func toScoringRatings(records []models.RatingRecord) []scoring.Rating {
	out := make([]scoring.Rating, 0, len(records))
	for _, r := range records {
		scores := make(map[scoring.Category]float64, len(r.CategoryScores))
		for name, v := range r.CategoryScores {
			if c, ok := scoring.ParseCategory(name); ok {
				scores[c] = v
			}
		}
		out = append(out, scoring.Rating{
			Timestamp:         r.CreatedAt,
			CategoryScores:    scores,
			AveragePercentage: r.AveragePercentage,
		})
	}
	return out
}

// loadStaffInScope fetches a staff member and checks the actor may see it.
func loadStaffInScope(ctx context.Context, repo StaffRepository, actor auth.Actor, staffID string) (models.Staff, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	st, err := repo.GetStaff(dbCtx, staffID)
	if err != nil {
		return models.Staff{}, mapRepoErr("get staff", err)
	}
	if !actor.CanAccessStaff(st) {
		// out-of-scope records are indistinguishable from missing ones
		if st.OrganizationID != actor.OrganizationID {
			return models.Staff{}, fmt.Errorf("get staff: %w", ErrNotFound)
		}
		return models.Staff{}, ErrForbidden
	}
	return st, nil
}

func (s *PerformanceService) buildPerformance(st models.Staff, window scoring.Window, start, end time.Time, records []scoring.Rating) StaffPerformance {
	inWindow := scoring.SortMostRecentFirst(scoring.SelectInWindow(records, start))
	agg := scoring.Aggregate(inWindow, s.aggOpts...)
	tier := scoring.Classify(float64(agg.TotalAverage))
	return StaffPerformance{
		Staff:            summarizeStaff(st),
		Window:           window,
		Start:            start,
		End:              end,
		TotalAverage:     agg.TotalAverage,
		CategoryAverages: agg.CategoryAverages,
		Trend:            agg.Trend,
		CategoryTrends:   agg.CategoryTrends,
		Count:            agg.Count,
		Tier:             tier,
		Color:            tier.Color(),
	}
}

// GetStaffPerformance aggregates one staff member's ratings in the window.
func (s *PerformanceService) GetStaffPerformance(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (StaffPerformance, error) {
	if !actor.Can(auth.PermPerformanceRead) {
		return StaffPerformance{}, ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return StaffPerformance{}, err
	}

	now := s.clock()
	start := scoring.WindowStart(window, now)
	records, err := s.fetchRatings(ctx, st.ID, start)
	if err != nil {
		return StaffPerformance{}, err
	}

	perf := s.buildPerformance(st, window, start, now, records)
	s.logger.Info("computed staff performance",
		zap.String("staff_id", st.ID),
		zap.String("window", string(window)),
		zap.Int("count", perf.Count),
		zap.Int("total_average", perf.TotalAverage),
		zap.String("trend", string(perf.Trend)))
	return perf, nil
}

// GetStaffSeries returns chronological chart points for the window.
func (s *PerformanceService) GetStaffSeries(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (StaffSeries, error) {
	if !actor.Can(auth.PermPerformanceRead) {
		return StaffSeries{}, ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return StaffSeries{}, err
	}

	now := s.clock()
	start := scoring.WindowStart(window, now)
	records, err := s.fetchRatings(ctx, st.ID, start)
	if err != nil {
		return StaffSeries{}, err
	}

	inWindow := scoring.SelectInWindow(records, start)
	return StaffSeries{
		StaffID: st.ID,
		Window:  window,
		Start:   start,
		End:     now,
		Weekly:  scoring.IsWeeklyBucketing(start, now),
		Points:  scoring.Series(inWindow, start, now),
	}, nil
}

// GetPeriodChange compares the window against the equal-length window
// right before it.
func (s *PerformanceService) GetPeriodChange(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) (PeriodChange, error) {
	if !actor.Can(auth.PermPerformanceRead) {
		return PeriodChange{}, ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return PeriodChange{}, err
	}

	now := s.clock()
	start := scoring.WindowStart(window, now)
	prevStart, prevEnd := scoring.PreviousWindow(start, now)

	records, err := s.fetchRatings(ctx, st.ID, prevStart)
	if err != nil {
		return PeriodChange{}, err
	}
	current := scoring.SelectInWindow(records, start)
	previous := scoring.SelectBetween(records, prevStart, prevEnd)

	currentScore := scoring.MeanPercentage(current)
	previousScore := scoring.MeanPercentage(previous)

	var change float64
	if previousScore > 0 {
		change = ((currentScore - previousScore) / previousScore) * 100.0
	} else if currentScore > 0 {
		change = 100.0
	}

	return PeriodChange{
		StaffID:             st.ID,
		CurrentStart:        start,
		CurrentEnd:          now,
		PreviousStart:       prevStart,
		PreviousEnd:         prevEnd,
		CurrentPeriodScore:  currentScore,
		PreviousPeriodScore: previousScore,
		ChangePercentage:    change,
		CurrentCount:        len(current),
		PreviousCount:       len(previous),
	}, nil
}

// staffPerformances computes every staff member's aggregate concurrently.
// Results keep the input order.
func (s *PerformanceService) staffPerformances(ctx context.Context, staff []models.Staff, window scoring.Window, start, end time.Time) ([]StaffPerformance, error) {
	out := make([]StaffPerformance, len(staff))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, st := range staff {
		g.Go(func() error {
			records, err := s.fetchRatings(gctx, st.ID, start)
			if err != nil {
				return err
			}
			out[i] = s.buildPerformance(st, window, start, end, records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// summarize returns the mean of rated staff averages and their tier counts.
// Staff without ratings in the window are left out of both.
func summarize(perfs []StaffPerformance) (average, rated int, counts TierCounts) {
	counts = newTierCounts()
	var sum float64
	for _, p := range perfs {
		if !p.Rated() {
			continue
		}
		rated++
		sum += float64(p.TotalAverage)
		counts[p.Tier]++
	}
	if rated > 0 {
		average = int(math.Round(sum / float64(rated)))
	}
	return average, rated, counts
}

func activeOnly(staff []models.Staff) []models.Staff {
	out := staff[:0:0]
	for _, st := range staff {
		if st.Active {
			out = append(out, st)
		}
	}
	return out
}

// GetBranchOverview aggregates every active staff member of a branch. A
// non-empty tierFilter narrows the returned staff list; counts and the
// branch average always cover the whole branch.
func (s *PerformanceService) GetBranchOverview(ctx context.Context, actor auth.Actor, branchID string, window scoring.Window, tierFilter scoring.Tier) (BranchOverview, error) {
	if !actor.Can(auth.PermPerformanceRead) || actor.Role == models.RoleStaff {
		return BranchOverview{}, ErrForbidden
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	branch, err := s.branches.GetBranch(dbCtx, branchID)
	if err != nil {
		return BranchOverview{}, mapRepoErr("get branch", err)
	}
	if branch.OrganizationID != actor.OrganizationID {
		return BranchOverview{}, fmt.Errorf("get branch: %w", ErrNotFound)
	}
	if !actor.CanAccessBranch(branch.OrganizationID, branch.ID) {
		return BranchOverview{}, ErrForbidden
	}

	staff, err := s.staff.ListStaffByBranch(dbCtx, branch.ID)
	if err != nil {
		return BranchOverview{}, mapRepoErr("list staff", err)
	}
	staff = activeOnly(staff)

	now := s.clock()
	start := scoring.WindowStart(window, now)
	perfs, err := s.staffPerformances(ctx, staff, window, start, now)
	if err != nil {
		return BranchOverview{}, err
	}
	average, rated, counts := summarize(perfs)

	// the fan-out above may outlast dbCtx
	managers, err := s.branchAccounts(ctx, branch.ID, models.RoleManager)
	if err != nil {
		return BranchOverview{}, err
	}
	supervisors, err := s.branchAccounts(ctx, branch.ID, models.RoleSupervisor)
	if err != nil {
		return BranchOverview{}, err
	}

	if tierFilter != "" {
		filtered := perfs[:0:0]
		for _, p := range perfs {
			if p.Rated() && p.Tier == tierFilter {
				filtered = append(filtered, p)
			}
		}
		perfs = filtered
	}
	slices.SortStableFunc(perfs, func(a, b StaffPerformance) int {
		if c := cmp.Compare(b.TotalAverage, a.TotalAverage); c != 0 {
			return c
		}
		return cmp.Compare(a.Staff.Name, b.Staff.Name)
	})

	s.logger.Info("computed branch overview",
		zap.String("branch_id", branch.ID),
		zap.String("window", string(window)),
		zap.Int("staff", len(staff)),
		zap.Int("rated", rated),
		zap.Int("average", average))

	return BranchOverview{
		Branch:      branch,
		Window:      window,
		Start:       start,
		End:         now,
		Average:     average,
		StaffCount:  len(staff),
		RatedStaff:  rated,
		TierCounts:  counts,
		Staff:       perfs,
		Managers:    managers,
		Supervisors: supervisors,
	}, nil
}

// branchAccounts looks up a branch's active accounts of one role by branch ID.
func (s *PerformanceService) branchAccounts(ctx context.Context, branchID string, role models.Role) ([]AccountSummary, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	accounts, err := s.accounts.ListAccountsByBranch(dbCtx, branchID, role)
	if err != nil {
		return nil, mapRepoErr("list branch accounts", err)
	}
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		if a.Active {
			out = append(out, summarizeAccount(a))
		}
	}
	return out, nil
}

// GetOrganizationOverview summarizes every branch of the actor's
// organization.
func (s *PerformanceService) GetOrganizationOverview(ctx context.Context, actor auth.Actor, window scoring.Window) (OrganizationOverview, error) {
	if !actor.Can(auth.PermPerformanceOrg) {
		return OrganizationOverview{}, ErrForbidden
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	branches, err := s.branches.ListBranches(dbCtx, actor.OrganizationID)
	if err != nil {
		return OrganizationOverview{}, mapRepoErr("list branches", err)
	}
	staff, err := s.staff.ListStaffByOrganization(dbCtx, actor.OrganizationID)
	if err != nil {
		return OrganizationOverview{}, mapRepoErr("list staff", err)
	}
	staff = activeOnly(staff)

	now := s.clock()
	start := scoring.WindowStart(window, now)
	perfs, err := s.staffPerformances(ctx, staff, window, start, now)
	if err != nil {
		return OrganizationOverview{}, err
	}

	byBranch := make(map[string][]StaffPerformance, len(branches))
	for _, p := range perfs {
		byBranch[p.Staff.BranchID] = append(byBranch[p.Staff.BranchID], p)
	}

	summaries := make([]BranchSummary, 0, len(branches))
	for _, b := range branches {
		members := byBranch[b.ID]
		average, rated, counts := summarize(members)
		summary := BranchSummary{
			BranchID:   b.ID,
			Name:       b.Name,
			Average:    average,
			StaffCount: len(members),
			RatedStaff: rated,
			TierCounts: counts,
		}
		if rated > 0 {
			summary.Tier = scoring.Classify(float64(average))
		}
		summaries = append(summaries, summary)
	}

	average, rated, counts := summarize(perfs)
	s.logger.Info("computed organization overview",
		zap.String("organization_id", actor.OrganizationID),
		zap.String("window", string(window)),
		zap.Int("branches", len(branches)),
		zap.Int("rated", rated))

	return OrganizationOverview{
		OrganizationID: actor.OrganizationID,
		Window:         window,
		Start:          start,
		End:            now,
		Average:        average,
		StaffCount:     len(staff),
		RatedStaff:     rated,
		TierCounts:     counts,
		Branches:       summaries,
	}, nil
}
