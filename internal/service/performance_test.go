package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service/mocks"
)

var testNow = time.Date(2025, 10, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var (
	adminActor   = auth.Actor{AccountID: "acc-admin", OrganizationID: "org-1", Role: models.RoleAdmin}
	hrActor      = auth.Actor{AccountID: "acc-hr", OrganizationID: "org-1", Role: models.RoleHR}
	opsActor     = auth.Actor{AccountID: "acc-ops", OrganizationID: "org-1", Role: models.RoleOperations}
	managerActor = auth.Actor{AccountID: "acc-mgr", OrganizationID: "org-1", Role: models.RoleManager, BranchID: "br-1"}
	staffActor   = auth.Actor{AccountID: "acc-st1", OrganizationID: "org-1", Role: models.RoleStaff, BranchID: "br-1", StaffID: "st-1"}
)

var testStaff = map[string]models.Staff{
	"st-1": {ID: "st-1", OrganizationID: "org-1", BranchID: "br-1", StaffNumber: "A001", FirstName: "Ada", LastName: "Obi", Active: true},
	"st-2": {ID: "st-2", OrganizationID: "org-1", BranchID: "br-1", StaffNumber: "A002", FirstName: "Bola", Active: true},
	"st-3": {ID: "st-3", OrganizationID: "org-1", BranchID: "br-2", StaffNumber: "B001", FirstName: "Chidi", Active: true},
	"st-4": {ID: "st-4", OrganizationID: "org-1", BranchID: "br-1", StaffNumber: "A003", FirstName: "Dayo", Active: false},
	"st-x": {ID: "st-x", OrganizationID: "org-2", BranchID: "br-x", StaffNumber: "X001", FirstName: "Xena", Active: true},
}

var testBranches = map[string]models.Branch{
	"br-1": {ID: "br-1", OrganizationID: "org-1", Name: "Lekki"},
	"br-2": {ID: "br-2", OrganizationID: "org-1", Name: "Ikeja"},
	"br-x": {ID: "br-x", OrganizationID: "org-2", Name: "Elsewhere"},
}

// uniformScores gives every category the same value.
func uniformScores(v float64) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range scoring.Categories() {
		out[string(c)] = v
	}
	return out
}

func record(staffID string, ago time.Duration, avg float64) models.RatingRecord {
	return models.RatingRecord{
		ID:                staffID + "-" + ago.String(),
		StaffID:           staffID,
		CategoryScores:    uniformScores(avg),
		AveragePercentage: avg,
		CreatedAt:         testNow.Add(-ago),
	}
}

// ratingsSince filters canned records the way the repositories do.
func ratingsSince(all map[string][]models.RatingRecord) func(context.Context, string, time.Time) ([]models.RatingRecord, error) {
	return func(_ context.Context, staffID string, since time.Time) ([]models.RatingRecord, error) {
		var out []models.RatingRecord
		for _, r := range all[staffID] {
			if !r.CreatedAt.Before(since) {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

func newTestRepos(ratings map[string][]models.RatingRecord) (Repositories, *mocks.MockRatingRepository) {
	ratingRepo := &mocks.MockRatingRepository{ListRatingsFunc: ratingsSince(ratings)}
	staffRepo := &mocks.MockStaffRepository{
		GetStaffFunc: func(_ context.Context, id string) (models.Staff, error) {
			st, ok := testStaff[id]
			if !ok {
				return models.Staff{}, models.ErrNotFound
			}
			return st, nil
		},
		ListStaffByBranchFunc: func(_ context.Context, branchID string) ([]models.Staff, error) {
			var out []models.Staff
			for _, id := range []string{"st-1", "st-2", "st-3", "st-4", "st-x"} {
				if testStaff[id].BranchID == branchID {
					out = append(out, testStaff[id])
				}
			}
			return out, nil
		},
		ListStaffByOrganizationFunc: func(_ context.Context, orgID string) ([]models.Staff, error) {
			var out []models.Staff
			for _, id := range []string{"st-1", "st-2", "st-3", "st-4", "st-x"} {
				if testStaff[id].OrganizationID == orgID {
					out = append(out, testStaff[id])
				}
			}
			return out, nil
		},
	}
	branchRepo := &mocks.MockBranchRepository{
		GetBranchFunc: func(_ context.Context, id string) (models.Branch, error) {
			b, ok := testBranches[id]
			if !ok {
				return models.Branch{}, models.ErrNotFound
			}
			return b, nil
		},
		ListBranchesFunc: func(_ context.Context, orgID string) ([]models.Branch, error) {
			return []models.Branch{testBranches["br-2"], testBranches["br-1"]}, nil
		},
	}
	accountRepo := &mocks.MockAccountRepository{
		ListAccountsByBranchFunc: func(_ context.Context, branchID string, role models.Role) ([]models.Account, error) {
			if branchID != "br-1" {
				return nil, nil
			}
			switch role {
			case models.RoleManager:
				return []models.Account{
					{ID: "acc-mgr", Name: "Mona", Role: models.RoleManager, BranchID: "br-1", Active: true},
					{ID: "acc-old", Name: "Old", Role: models.RoleManager, BranchID: "br-1", Active: false},
				}, nil
			case models.RoleSupervisor:
				return []models.Account{{ID: "acc-sup", Name: "Sam", Role: models.RoleSupervisor, BranchID: "br-1", Active: true}}, nil
			}
			return nil, nil
		},
	}
	return Repositories{
		Staff:    staffRepo,
		Branches: branchRepo,
		Accounts: accountRepo,
		Ratings:  ratingRepo,
	}, ratingRepo
}

func TestNewPerformanceService(t *testing.T) {
	repos, _ := newTestRepos(nil)

	t.Run("valid parameters", func(t *testing.T) {
		svc := NewPerformanceService(repos, zap.NewNop(), WithConcurrency(3))
		assert.NotNil(t, svc)
		assert.Equal(t, 3, svc.concurrency)
	})

	t.Run("missing repository panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewPerformanceService(Repositories{Staff: repos.Staff}, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewPerformanceService(repos, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestGetStaffPerformance(t *testing.T) {
	ctx := context.Background()
	ratings := map[string][]models.RatingRecord{
		"st-1": {
			record("st-1", 1*time.Hour, 90),
			record("st-1", 2*24*time.Hour, 80),
			record("st-1", 10*24*time.Hour, 10),
		},
	}

	t.Run("weekly aggregate with tier and color", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		perf, err := svc.GetStaffPerformance(ctx, managerActor, "st-1", scoring.WindowWeekly)
		require.NoError(t, err)
		assert.Equal(t, 2, perf.Count)
		assert.Equal(t, 85, perf.TotalAverage)
		assert.Equal(t, scoring.TierTop, perf.Tier)
		assert.Equal(t, scoring.ColorGreen, perf.Color)
		assert.Equal(t, 85, perf.CategoryAverages[scoring.CategoryTime])
		// the older half is empty and counts as 0
		assert.Equal(t, scoring.TrendImproving, perf.Trend)
		assert.Equal(t, testNow.Add(-7*24*time.Hour), perf.Start)
		assert.Equal(t, testNow, perf.End)
		assert.Equal(t, "Ada Obi", perf.Staff.Name)
	})

	t.Run("empty window", func(t *testing.T) {
		repos, _ := newTestRepos(nil)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		perf, err := svc.GetStaffPerformance(ctx, adminActor, "st-2", scoring.WindowMonthly)
		require.NoError(t, err)
		assert.False(t, perf.Rated())
		assert.Equal(t, 0, perf.TotalAverage)
		assert.Equal(t, scoring.TierPriority, perf.Tier)
	})

	t.Run("staff can read their own performance only", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetStaffPerformance(ctx, staffActor, "st-1", scoring.WindowWeekly)
		require.NoError(t, err)

		_, err = svc.GetStaffPerformance(ctx, staffActor, "st-2", scoring.WindowWeekly)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("manager outside branch is forbidden", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetStaffPerformance(ctx, managerActor, "st-3", scoring.WindowWeekly)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("other organization looks missing", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetStaffPerformance(ctx, adminActor, "st-x", scoring.WindowWeekly)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.GetStaffPerformance(ctx, adminActor, "nobody", scoring.WindowWeekly)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repos, ratingRepo := newTestRepos(nil)
		ratingRepo.ListRatingsFunc = func(context.Context, string, time.Time) ([]models.RatingRecord, error) {
			return nil, errors.New("database connection failed")
		}
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetStaffPerformance(ctx, adminActor, "st-1", scoring.WindowWeekly)
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "database connection failed")
	})
}

func TestGetStaffPerformance_MissingCategoryPolicy(t *testing.T) {
	ctx := context.Background()
	partial := record("st-1", time.Hour, 60)
	delete(partial.CategoryScores, string(scoring.CategoryCreativity))
	ratings := map[string][]models.RatingRecord{
		"st-1": {partial, record("st-1", 2*time.Hour, 80)},
	}

	repos, _ := newTestRepos(ratings)
	asZero := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))
	excluded := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock),
		WithMissingCategoryPolicy(scoring.MissingExcluded))

	perf, err := asZero.GetStaffPerformance(ctx, adminActor, "st-1", scoring.WindowWeekly)
	require.NoError(t, err)
	assert.Equal(t, 40, perf.CategoryAverages[scoring.CategoryCreativity])

	perf, err = excluded.GetStaffPerformance(ctx, adminActor, "st-1", scoring.WindowWeekly)
	require.NoError(t, err)
	assert.Equal(t, 80, perf.CategoryAverages[scoring.CategoryCreativity])
}

func TestGetStaffSeries(t *testing.T) {
	ratings := map[string][]models.RatingRecord{
		"st-1": {
			record("st-1", 1*time.Hour, 90),
			record("st-1", 2*time.Hour, 70),
			record("st-1", 3*24*time.Hour, 50),
		},
	}
	repos, _ := newTestRepos(ratings)
	svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

	series, err := svc.GetStaffSeries(context.Background(), adminActor, "st-1", scoring.WindowWeekly)
	require.NoError(t, err)
	assert.False(t, series.Weekly)
	require.Len(t, series.Points, 2)
	assert.Equal(t, scoring.Point{Period: "2025-10-15", Average: 50, Count: 1}, series.Points[0])
	assert.Equal(t, scoring.Point{Period: "2025-10-18", Average: 80, Count: 2}, series.Points[1])

	series, err = svc.GetStaffSeries(context.Background(), adminActor, "st-1", scoring.WindowTrimester)
	require.NoError(t, err)
	assert.True(t, series.Weekly)
}

func TestGetPeriodChange(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		ratings  []models.RatingRecord
		current  float64
		previous float64
		change   float64
	}{
		{
			name: "improvement",
			ratings: []models.RatingRecord{
				record("st-1", 1*24*time.Hour, 90),
				record("st-1", 8*24*time.Hour, 60),
			},
			current: 90, previous: 60, change: 50,
		},
		{
			name: "decline",
			ratings: []models.RatingRecord{
				record("st-1", 1*24*time.Hour, 40),
				record("st-1", 9*24*time.Hour, 80),
			},
			current: 40, previous: 80, change: -50,
		},
		{
			name:    "no previous ratings counts as full improvement",
			ratings: []models.RatingRecord{record("st-1", 1*24*time.Hour, 70)},
			current: 70, previous: 0, change: 100,
		},
		{
			name:    "no ratings at all",
			current: 0, previous: 0, change: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repos, _ := newTestRepos(map[string][]models.RatingRecord{"st-1": tc.ratings})
			svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

			got, err := svc.GetPeriodChange(ctx, adminActor, "st-1", scoring.WindowWeekly)
			require.NoError(t, err)
			assert.InDelta(t, tc.current, got.CurrentPeriodScore, 0.001)
			assert.InDelta(t, tc.previous, got.PreviousPeriodScore, 0.001)
			assert.InDelta(t, tc.change, got.ChangePercentage, 0.001)
			assert.Equal(t, testNow.Add(-7*24*time.Hour), got.CurrentStart)
			assert.True(t, got.PreviousEnd.Before(got.CurrentStart))
		})
	}
}

func TestGetBranchOverview(t *testing.T) {
	ctx := context.Background()
	ratings := map[string][]models.RatingRecord{
		"st-1": {record("st-1", time.Hour, 90)},
		"st-2": {record("st-2", time.Hour, 40)},
		"st-4": {record("st-4", time.Hour, 100)},
	}

	t.Run("aggregates active staff", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		overview, err := svc.GetBranchOverview(ctx, managerActor, "br-1", scoring.WindowWeekly, "")
		require.NoError(t, err)
		assert.Equal(t, 2, overview.StaffCount)
		assert.Equal(t, 2, overview.RatedStaff)
		assert.Equal(t, 65, overview.Average)
		assert.Equal(t, 1, overview.TierCounts[scoring.TierTop])
		assert.Equal(t, 0, overview.TierCounts[scoring.TierAverage])
		assert.Equal(t, 1, overview.TierCounts[scoring.TierPriority])
		require.Len(t, overview.Staff, 2)
		assert.Equal(t, "st-1", overview.Staff[0].Staff.ID)
		require.Len(t, overview.Managers, 1)
		assert.Equal(t, "acc-mgr", overview.Managers[0].ID)
		require.Len(t, overview.Supervisors, 1)
	})

	t.Run("tier filter narrows staff but not counts", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		overview, err := svc.GetBranchOverview(ctx, adminActor, "br-1", scoring.WindowWeekly, scoring.TierPriority)
		require.NoError(t, err)
		require.Len(t, overview.Staff, 1)
		assert.Equal(t, "st-2", overview.Staff[0].Staff.ID)
		assert.Equal(t, 2, overview.RatedStaff)
	})

	t.Run("slow fan-out leaves account lookups their own budget", func(t *testing.T) {
		repos, ratingRepo := newTestRepos(ratings)
		list := ratingRepo.ListRatingsFunc
		ratingRepo.ListRatingsFunc = func(ctx context.Context, staffID string, since time.Time) ([]models.RatingRecord, error) {
			time.Sleep(70 * time.Millisecond)
			return list(ctx, staffID, since)
		}
		accountRepo := repos.Accounts.(*mocks.MockAccountRepository)
		byBranch := accountRepo.ListAccountsByBranchFunc
		accountRepo.ListAccountsByBranchFunc = func(ctx context.Context, branchID string, role models.Role) ([]models.Account, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return byBranch(ctx, branchID, role)
		}
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock),
			WithConcurrency(1), WithDBTimeout(100*time.Millisecond))

		overview, err := svc.GetBranchOverview(ctx, adminActor, "br-1", scoring.WindowWeekly, "")
		require.NoError(t, err)
		assert.Equal(t, 2, overview.RatedStaff)
		require.Len(t, overview.Managers, 1)
		require.Len(t, overview.Supervisors, 1)
	})

	t.Run("unrated staff are left out of the average", func(t *testing.T) {
		repos, _ := newTestRepos(map[string][]models.RatingRecord{"st-1": {record("st-1", time.Hour, 90)}})
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		overview, err := svc.GetBranchOverview(ctx, adminActor, "br-1", scoring.WindowWeekly, "")
		require.NoError(t, err)
		assert.Equal(t, 90, overview.Average)
		assert.Equal(t, 1, overview.RatedStaff)
		assert.Equal(t, 2, overview.StaffCount)
	})

	t.Run("scope", func(t *testing.T) {
		repos, _ := newTestRepos(ratings)
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetBranchOverview(ctx, managerActor, "br-2", scoring.WindowWeekly, "")
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.GetBranchOverview(ctx, staffActor, "br-1", scoring.WindowWeekly, "")
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.GetBranchOverview(ctx, adminActor, "br-x", scoring.WindowWeekly, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("one failing fetch fails the overview", func(t *testing.T) {
		repos, ratingRepo := newTestRepos(nil)
		ratingRepo.ListRatingsFunc = func(_ context.Context, staffID string, _ time.Time) ([]models.RatingRecord, error) {
			if staffID == "st-2" {
				return nil, errors.New("timeout")
			}
			return nil, nil
		}
		svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

		_, err := svc.GetBranchOverview(ctx, adminActor, "br-1", scoring.WindowWeekly, "")
		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestGetOrganizationOverview(t *testing.T) {
	ctx := context.Background()
	ratings := map[string][]models.RatingRecord{
		"st-1": {record("st-1", time.Hour, 90)},
		"st-2": {record("st-2", time.Hour, 70)},
		"st-3": {record("st-3", time.Hour, 30)},
	}
	repos, _ := newTestRepos(ratings)
	svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))

	overview, err := svc.GetOrganizationOverview(ctx, opsActor, scoring.WindowWeekly)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.StaffCount)
	assert.Equal(t, 3, overview.RatedStaff)
	assert.Equal(t, 63, overview.Average)
	require.Len(t, overview.Branches, 2)

	ikeja := overview.Branches[0]
	assert.Equal(t, "br-2", ikeja.BranchID)
	assert.Equal(t, 30, ikeja.Average)
	assert.Equal(t, scoring.TierPriority, ikeja.Tier)

	lekki := overview.Branches[1]
	assert.Equal(t, 80, lekki.Average)
	assert.Equal(t, scoring.TierTop, lekki.Tier)
	assert.Equal(t, 1, lekki.TierCounts[scoring.TierTop])
	assert.Equal(t, 1, lekki.TierCounts[scoring.TierAverage])

	_, err = svc.GetOrganizationOverview(ctx, managerActor, scoring.WindowWeekly)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetOrganizationOverview(ctx, hrActor, scoring.WindowWeekly)
	assert.NoError(t, err)
}

func TestFetchRatings_SharesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	repos, ratingRepo := newTestRepos(nil)
	ratingRepo.ListRatingsFunc = func(context.Context, string, time.Time) ([]models.RatingRecord, error) {
		calls.Add(1)
		<-release
		return []models.RatingRecord{record("st-1", time.Hour, 75)}, nil
	}
	svc := NewPerformanceService(repos, zap.NewNop(), WithClock(fixedClock))
	since := testNow.Add(-7 * 24 * time.Hour)

	var wg sync.WaitGroup
	results := make([][]scoring.Rating, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.fetchRatings(context.Background(), "st-1", since)
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	// give the goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		require.Len(t, got, 1)
		assert.InDelta(t, 75.0, got[0].AveragePercentage, 0.001)
	}
}

func TestToScoringRatings_IgnoresUnknownCategories(t *testing.T) {
	got := toScoringRatings([]models.RatingRecord{{
		CategoryScores:    map[string]float64{"time": 80, "legacy_field": 10},
		AveragePercentage: 80,
		CreatedAt:         testNow,
	}})
	require.Len(t, got, 1)
	assert.Len(t, got[0].CategoryScores, 1)
	assert.Equal(t, 80.0, got[0].CategoryScores[scoring.CategoryTime])
}
