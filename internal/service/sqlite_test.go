package service_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/godilite/staff-perf/internal/repository"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/service"
	dbbuilder "github.com/godilite/staff-perf/pkg/database"
)

var seedTime = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

// setupRealRepos builds every SQLite repository over one in-memory database
// holding org-1 with branches br-1 and br-2.
func setupRealRepos(tb testing.TB) service.Repositories {
	tb.Helper()
	ctx := context.Background()

	db, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	require.NoError(tb, repository.Migrate(ctx, db))

	repos := service.Repositories{
		Organizations: repository.NewOrganizationRepository(db),
		Branches:      repository.NewBranchRepository(db),
		Staff:         repository.NewStaffRepository(db),
		Accounts:      repository.NewAccountRepository(db),
		Ratings:       repository.NewRatingRepository(db),
	}
	require.NoError(tb, repos.Organizations.CreateOrganization(ctx, models.Organization{ID: "org-1", Name: "Acme Retail", CreatedAt: seedTime}))
	for _, b := range []models.Branch{
		{ID: "br-1", OrganizationID: "org-1", Name: "Lekki", Location: "Lagos", CreatedAt: seedTime, UpdatedAt: seedTime},
		{ID: "br-2", OrganizationID: "org-1", Name: "Ikeja", Location: "Lagos", CreatedAt: seedTime, UpdatedAt: seedTime},
	} {
		require.NoError(tb, repos.Branches.CreateBranch(ctx, b))
	}
	return repos
}
