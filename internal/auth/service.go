package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/repository/models"
)

// AccountStore is the account persistence the auth service needs.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (models.Account, error)
	UpdateAccount(ctx context.Context, a models.Account) error
}

type Options struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

type Option func(*Options)

func WithLockout(maxAttempts int, duration time.Duration) Option {
	return func(o *Options) {
		o.MaxAttempts = maxAttempts
		o.LockoutDuration = duration
	}
}

type Service struct {
	accounts AccountStore
	tokens   *TokenIssuer
	sessions sessions
	lockout  lockout
	logger   *zap.Logger
	now      func() time.Time
	check    func(hash, secret string) error
}

func NewService(accounts AccountStore, store Cacher, tokens *TokenIssuer, logger *zap.Logger, opts ...Option) *Service {
	options := &Options{MaxAttempts: 5, LockoutDuration: 15 * time.Minute}
	for _, opt := range opts {
		opt(options)
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions{cache: store, ttl: tokens.TTL()},
		lockout:  lockout{cache: store, maxAttempts: options.MaxAttempts, duration: options.LockoutDuration},
		logger:   logger.Named("auth"),
		now:      time.Now,
		check:    CheckSecret,
	}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Actor     Actor     `json:"actor"`
}

// Login verifies a PIN or password and opens a session.
func (s *Service) Login(ctx context.Context, login, secret string) (LoginResult, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || secret == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := s.lockout.check(ctx, login); err != nil {
		return LoginResult{}, err
	}

	account, err := s.accounts.GetAccountByLogin(ctx, login)
	switch {
	case errors.Is(err, models.ErrNotFound):
		_ = s.check(dummyHash(), secret)
		return LoginResult{}, s.failLogin(ctx, login)
	case err != nil:
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}
	if !account.Active {
		_ = s.check(dummyHash(), secret)
		s.logger.Info("login refused for inactive account", zap.String("account_id", account.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.check(account.SecretHash, secret); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return LoginResult{}, s.failLogin(ctx, login)
		}
		return LoginResult{}, fmt.Errorf("check secret: %w", err)
	}

	if err := s.lockout.reset(ctx, login); err != nil {
		s.logger.Warn("failed to reset lockout counter", zap.String("login", login), zap.Error(err))
	}

	sessionID := uuid.NewString()
	if err := s.sessions.create(ctx, sessionID, account.ID, s.now()); err != nil {
		return LoginResult{}, err
	}
	token, expires, err := s.tokens.Issue(Claims{
		AccountID:      account.ID,
		OrganizationID: account.OrganizationID,
		Role:           account.Role,
		BranchID:       account.BranchID,
		StaffID:        account.StaffID,
		SessionID:      sessionID,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)))
	return LoginResult{Token: token, ExpiresAt: expires, Actor: ActorFromAccount(account, sessionID)}, nil
}

func (s *Service) failLogin(ctx context.Context, login string) error {
	locked, err := s.lockout.fail(ctx, login)
	if err != nil {
		return err
	}
	if locked {
		s.logger.Warn("login locked after repeated failures", zap.String("login", login))
		return &LockedError{RetryAfter: s.lockout.duration}
	}
	return ErrInvalidCredentials
}

// Logout revokes the actor's session; its token stops working immediately.
func (s *Service) Logout(ctx context.Context, actor Actor) error {
	if actor.SessionID == "" {
		return ErrUnauthenticated
	}
	return s.sessions.revoke(ctx, actor.SessionID)
}

// Authenticate resolves a bearer token to an Actor. The session must still
// be live and the account active; role and branch come from the current
// account record rather than the token.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (Actor, error) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	sess, err := s.sessions.lookup(ctx, claims.SessionID)
	if err != nil {
		return Actor{}, err
	}
	if sess.AccountID != claims.AccountID {
		return Actor{}, ErrUnauthenticated
	}

	account, err := s.accounts.GetAccount(ctx, claims.AccountID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return Actor{}, ErrUnauthenticated
	case err != nil:
		return Actor{}, fmt.Errorf("load account: %w", err)
	}
	if !account.Active {
		return Actor{}, ErrUnauthenticated
	}
	return ActorFromAccount(account, claims.SessionID), nil
}

// ChangeSecret replaces the actor's own PIN or password.
func (s *Service) ChangeSecret(ctx context.Context, actor Actor, current, next string) error {
	account, err := s.accounts.GetAccount(ctx, actor.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if err := CheckSecret(account.SecretHash, current); err != nil {
		return err
	}
	return s.storeSecret(ctx, account, next)
}

// ResetSecret sets another account's PIN or password. HR cannot reset an
// admin.
func (s *Service) ResetSecret(ctx context.Context, actor Actor, accountID, next string) error {
	if !actor.Can(PermAccountsWrite) {
		return ErrForbidden
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account.OrganizationID != actor.OrganizationID {
		return fmt.Errorf("load account: %w", models.ErrNotFound)
	}
	if account.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := s.storeSecret(ctx, account, next); err != nil {
		return err
	}
	if err := s.lockout.reset(ctx, account.Login); err != nil {
		s.logger.Warn("failed to clear lockout after reset", zap.String("account_id", account.ID), zap.Error(err))
	}
	s.logger.Info("secret reset",
		zap.String("account_id", account.ID),
		zap.String("by", actor.AccountID))
	return nil
}

func (s *Service) storeSecret(ctx context.Context, account models.Account, secret string) error {
	hash, err := HashSecret(account.Role, secret)
	if err != nil {
		return err
	}
	account.SecretHash = hash
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}
