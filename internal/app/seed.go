package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/service"
)

// SeedAdmin is the bootstrap administrator created on first start.
type SeedAdmin struct {
	OrganizationName string
	Login            string
	Password         string
}

// seedAdmin creates the first organization and its admin account. It does
// nothing once the login exists, so it is safe to run on every start.
func seedAdmin(ctx context.Context, repos service.Repositories, seed SeedAdmin, now time.Time, logger *zap.Logger) error {
	login := strings.TrimSpace(seed.Login)
	if login == "" {
		return nil
	}

	_, err := repos.Accounts.GetAccountByLogin(ctx, login)
	switch {
	case err == nil:
		logger.Debug("seed admin already present", zap.String("login", login))
		return nil
	case !errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("look up seed admin: %w", err)
	}

	orgs, err := repos.Organizations.ListOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	var org models.Organization
	if len(orgs) > 0 {
		org = orgs[0]
	} else {
		org = models.Organization{ID: uuid.NewString(), Name: seed.OrganizationName, CreatedAt: now}
		if err := repos.Organizations.CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("create seed organization: %w", err)
		}
		logger.Info("seed organization created", zap.String("organization_id", org.ID))
	}

	hash, err := auth.HashSecret(models.RoleAdmin, seed.Password)
	if err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}
	admin := models.Account{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Role:           models.RoleAdmin,
		Login:          login,
		Name:           "Administrator",
		SecretHash:     hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repos.Accounts.CreateAccount(ctx, admin); err != nil {
		return fmt.Errorf("create seed admin: %w", err)
	}
	logger.Info("seed admin created",
		zap.String("account_id", admin.ID),
		zap.String("organization_id", org.ID))
	return nil
}
