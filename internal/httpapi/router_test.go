package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	authmocks "github.com/godilite/staff-perf/internal/auth/mocks"
	"github.com/godilite/staff-perf/internal/httpapi"
	"github.com/godilite/staff-perf/internal/repository"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/service"
	dbbuilder "github.com/godilite/staff-perf/pkg/database"
)

const adminPassword = "admin-pass-1"

type harness struct {
	t       *testing.T
	handler http.Handler
	repos   service.Repositories
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
	Error     *struct {
		Code    string               `json:"code"`
		Message string               `json:"message"`
		Issues  []service.FieldIssue `json:"issues"`
	} `json:"error"`
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := dbbuilder.New(ctx, dbbuilder.WithDriver("sqlite3"), dbbuilder.WithDataSource(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	accounts := repository.NewAccountRepository(db)
	repos := service.Repositories{
		Organizations: repository.NewOrganizationRepository(db),
		Branches:      repository.NewBranchRepository(db),
		Staff:         repository.NewStaffRepository(db),
		Accounts:      accounts,
		Ratings:       repository.NewRatingRepository(db),
	}

	now := time.Now().UTC()
	require.NoError(t, repos.Organizations.CreateOrganization(ctx, models.Organization{ID: "org-1", Name: "Acme", CreatedAt: now}))
	hash, err := auth.HashSecret(models.RoleAdmin, adminPassword)
	require.NoError(t, err)
	require.NoError(t, accounts.CreateAccount(ctx, models.Account{
		ID: "acc-admin", OrganizationID: "org-1", Role: models.RoleAdmin, Login: "admin",
		Name: "Admin", SecretHash: hash, Active: true, CreatedAt: now, UpdatedAt: now,
	}))

	authSvc := auth.NewService(accounts, authmocks.NewMemoryCache(),
		auth.NewTokenIssuer("test-secret", time.Hour), logger, auth.WithLockout(3, time.Minute))

	handler := httpapi.NewRouter(httpapi.Deps{
		Auth:           authSvc,
		Performance:    service.NewPerformanceService(repos, logger),
		Ratings:        service.NewRatingService(repos, logger),
		Directory:      service.NewDirectoryService(repos, logger),
		Logger:         logger,
		AllowedOrigins: []string{"http://dashboard.test"},
		Checks:         map[string]httpapi.Checker{"database": db.PingContext},
	})
	return &harness{t: t, handler: handler, repos: repos}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (h *harness) login(login, secret string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": login, "secret": secret})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var result auth.LoginResult
	decodeEnvelope(h.t, rec, &result)
	require.NotEmpty(h.t, result.Token)
	return result.Token
}

func sevenScores(v float64) map[string]float64 {
	return map[string]float64{
		"time": v, "creativity": v, "shelf_cleanliness": v, "stock_management": v,
		"customer_service": v, "discipline_cases": v, "personal_grooming": v,
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec, nil)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, rec.Header().Get("X-Request-ID"))

	rec = h.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness_FailingCheck(t *testing.T) {
	handler := httpapi.NewRouter(httpapi.Deps{
		Checks: map[string]httpapi.Checker{
			"redis": func(context.Context) error { return assert.AnError },
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status map[string]string
	env := decodeEnvelope(t, rec, &status)
	assert.False(t, env.Success)
	assert.Equal(t, "unavailable", status["redis"])
}

func TestAuthentication(t *testing.T) {
	h := newHarness(t)

	t.Run("missing token", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/branches", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.Equal(t, "unauthorized", env.Error.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "admin", "secret": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.Equal(t, "invalid_credentials", env.Error.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "admin", "password": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		token := h.login("admin", adminPassword)
		rec := h.do(http.MethodGet, "/api/v1/organizations", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/organizations", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lockout", func(t *testing.T) {
		for range 2 {
			rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "ghost", "secret": "1111"})
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}
		rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "ghost", "secret": "1111"})
		assert.Equal(t, http.StatusLocked, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))

		rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "ghost", "secret": "1111"})
		assert.Equal(t, http.StatusLocked, rec.Code)
	})
}

func TestRatingJourney(t *testing.T) {
	h := newHarness(t)
	admin := h.login("admin", adminPassword)

	var branch models.Branch
	rec := h.do(http.MethodPost, "/api/v1/branches", admin, map[string]string{"name": "Lekki", "location": "Lagos"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeEnvelope(t, rec, &branch)

	var other models.Branch
	rec = h.do(http.MethodPost, "/api/v1/branches", admin, map[string]string{"name": "Ikeja"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeEnvelope(t, rec, &other)

	var ada, bola models.Staff
	rec = h.do(http.MethodPost, "/api/v1/staff", admin, map[string]any{
		"branchId": branch.ID, "staffNumber": "A001", "firstName": "Ada", "lastName": "Obi", "pin": "1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeEnvelope(t, rec, &ada)

	rec = h.do(http.MethodPost, "/api/v1/staff", admin, map[string]any{
		"branchId": other.ID, "staffNumber": "B001", "firstName": "Bola",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeEnvelope(t, rec, &bola)

	rec = h.do(http.MethodPost, "/api/v1/accounts", admin, map[string]any{
		"role": "manager", "login": "mona", "name": "Mona", "branchId": branch.ID, "secret": "2468",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	manager := h.login("mona", "2468")

	t.Run("manager rates branch staff", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/staff/"+ada.ID+"/ratings", manager, map[string]any{
			"scores": sevenScores(90), "comment": "great",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var rating models.RatingRecord
		decodeEnvelope(t, rec, &rating)
		assert.InDelta(t, 90.0, rating.AveragePercentage, 0.001)

		rec = h.do(http.MethodPost, "/api/v1/staff/"+bola.ID+"/ratings", manager, map[string]any{"scores": sevenScores(90)})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation issues", func(t *testing.T) {
		scores := sevenScores(90)
		scores["time"] = 140
		rec := h.do(http.MethodPost, "/api/v1/staff/"+ada.ID+"/ratings", manager, map[string]any{"scores": scores})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec, nil)
		assert.Equal(t, "validation_error", env.Error.Code)
		require.Len(t, env.Error.Issues, 1)
		assert.Equal(t, "scores[time]", env.Error.Issues[0].Field)
	})

	t.Run("performance views", func(t *testing.T) {
		var perf service.StaffPerformance
		rec := h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/performance?window=monthly", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeEnvelope(t, rec, &perf)
		assert.Equal(t, 90, perf.TotalAverage)
		assert.Equal(t, "top", string(perf.Tier))
		assert.Equal(t, "green", string(perf.Color))

		rec = h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/performance/series", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var series service.StaffSeries
		decodeEnvelope(t, rec, &series)
		require.Len(t, series.Points, 1)

		rec = h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/performance/change?window=weekly", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var change service.PeriodChange
		decodeEnvelope(t, rec, &change)
		assert.InDelta(t, 100.0, change.ChangePercentage, 0.001)

		rec = h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/performance?window=fortnight", manager, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/ratings", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var ratings []models.RatingRecord
		decodeEnvelope(t, rec, &ratings)
		assert.Len(t, ratings, 1)
	})

	t.Run("branch overview", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/branches/"+branch.ID+"/performance?tier=top", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var overview service.BranchOverview
		decodeEnvelope(t, rec, &overview)
		assert.Equal(t, 90, overview.Average)
		require.Len(t, overview.Staff, 1)
		require.Len(t, overview.Managers, 1)
		assert.Equal(t, "Mona", overview.Managers[0].Name)

		rec = h.do(http.MethodGet, "/api/v1/branches/"+branch.ID+"/performance?tier=gold", manager, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/branches/"+other.ID+"/performance", manager, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("organization overview", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/performance/organization", manager, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/performance/organization?window=six_month", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var overview service.OrganizationOverview
		decodeEnvelope(t, rec, &overview)
		assert.Len(t, overview.Branches, 2)
		assert.Equal(t, 1, overview.RatedStaff)
	})

	t.Run("report", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/report.pdf?window=monthly", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "performance-A001-monthly")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("staff login sees only themselves", func(t *testing.T) {
		self := h.login("A001", "1234")

		rec := h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/performance", self, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/staff/"+bola.ID+"/performance", self, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = h.do(http.MethodPost, "/api/v1/staff/"+ada.ID+"/ratings", self, map[string]any{"scores": sevenScores(100)})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("managers and deletes", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/staff/"+ada.ID+"/managers", manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var managers []service.AccountSummary
		decodeEnvelope(t, rec, &managers)
		require.Len(t, managers, 1)

		rec = h.do(http.MethodDelete, "/api/v1/branches/"+branch.ID, admin, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = h.do(http.MethodDelete, "/api/v1/staff/"+bola.ID, admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = h.do(http.MethodGet, "/api/v1/staff/"+bola.ID, admin, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("secrets", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/secret", manager, map[string]string{"current": "2468", "next": "13579"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		h.login("mona", "13579")

		var accounts []models.Account
		rec = h.do(http.MethodGet, "/api/v1/accounts?role=manager", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeEnvelope(t, rec, &accounts)
		require.Len(t, accounts, 1)
		assert.NotContains(t, rec.Body.String(), "secretHash")

		rec = h.do(http.MethodPost, "/api/v1/accounts/"+accounts[0].ID+"/secret", admin, map[string]string{"secret": "12"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodPost, "/api/v1/accounts/"+accounts[0].ID+"/secret", admin, map[string]string{"secret": "8642"})
		require.Equal(t, http.StatusOK, rec.Code)
		h.login("mona", "8642")

		rec = h.do(http.MethodDelete, "/api/v1/accounts/"+accounts[0].ID, admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": "mona", "secret": "8642"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/branches", nil)
	req.Header.Set("Origin", "http://dashboard.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://dashboard.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/v2/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec, nil)
	assert.Equal(t, "not_found", env.Error.Code)
}
