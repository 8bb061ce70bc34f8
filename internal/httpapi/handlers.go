package httpapi

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/godilite/staff-perf/internal/report"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

// windowParam reads ?window=, defaulting to weekly when absent.
func windowParam(r *http.Request) (scoring.Window, error) {
	return scoring.ParseWindow(r.URL.Query().Get("window"))
}

// Auth

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Login  string `json:"login"`
		Secret string `json:"secret"`
	}
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.auth.Login(r.Context(), payload.Login, payload.Secret)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), actorOf(r)); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"loggedOut": true})
}

func (h *Handler) handleChangeSecret(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if err := h.auth.ChangeSecret(r.Context(), actorOf(r), payload.Current, payload.Next); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"changed": true})
}

func (h *Handler) handleResetSecret(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Secret string `json:"secret"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if err := h.auth.ResetSecret(r.Context(), actorOf(r), chi.URLParam(r, "id"), payload.Secret); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"reset": true})
}

// Organizations

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.directory.ListOrganizations(r.Context(), actorOf(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, orgs)
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in service.OrganizationInput
	if !decode(w, r, &in) {
		return
	}
	org, err := h.directory.CreateOrganization(r.Context(), actorOf(r), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, r, org)
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.directory.GetOrganization(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, org)
}

// Branches

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.directory.ListBranches(r.Context(), actorOf(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, branches)
}

func (h *Handler) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var in service.BranchInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.directory.CreateBranch(r.Context(), actorOf(r), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, r, b)
}

func (h *Handler) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	b, err := h.directory.GetBranch(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, b)
}

func (h *Handler) handleUpdateBranch(w http.ResponseWriter, r *http.Request) {
	var in service.BranchInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.directory.UpdateBranch(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, b)
}

func (h *Handler) handleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteBranch(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"deleted": true})
}

func (h *Handler) handleBranchPerformance(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	var tier scoring.Tier
	if raw := r.URL.Query().Get("tier"); raw != "" {
		tier, err = scoring.ParseTier(raw)
		if err != nil {
			failIssues(w, r, []service.FieldIssue{{Field: "tier", Reason: "must be one of top average priority"}})
			return
		}
	}
	overview, err := h.performance.GetBranchOverview(r.Context(), actorOf(r), chi.URLParam(r, "id"), window, tier)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, overview)
}

// Staff

func (h *Handler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.directory.ListStaff(r.Context(), actorOf(r), r.URL.Query().Get("branchId"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, staff)
}

func (h *Handler) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var in service.StaffInput
	if !decode(w, r, &in) {
		return
	}
	st, err := h.directory.CreateStaff(r.Context(), actorOf(r), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, r, st)
}

func (h *Handler) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	st, err := h.directory.GetStaff(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, st)
}

func (h *Handler) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	var in service.StaffInput
	if !decode(w, r, &in) {
		return
	}
	st, err := h.directory.UpdateStaff(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, st)
}

func (h *Handler) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteStaff(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"deleted": true})
}

func (h *Handler) handleStaffManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.directory.ManagersForStaff(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, managers)
}

// Ratings and performance

func (h *Handler) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var in service.RatingInput
	if !decode(w, r, &in) {
		return
	}
	rating, err := h.ratings.SubmitRating(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, r, rating)
}

func (h *Handler) handleListRatings(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ratings, err := h.ratings.ListStaffRatings(r.Context(), actorOf(r), chi.URLParam(r, "id"), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, ratings)
}

func (h *Handler) handleStaffPerformance(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	perf, err := h.performance.GetStaffPerformance(r.Context(), actorOf(r), chi.URLParam(r, "id"), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, perf)
}

func (h *Handler) handleStaffSeries(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	series, err := h.performance.GetStaffSeries(r.Context(), actorOf(r), chi.URLParam(r, "id"), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, series)
}

func (h *Handler) handlePeriodChange(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	change, err := h.performance.GetPeriodChange(r.Context(), actorOf(r), chi.URLParam(r, "id"), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, change)
}

func (h *Handler) handleStaffReport(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	perf, err := h.performance.GetStaffPerformance(r.Context(), actorOf(r), chi.URLParam(r, "id"), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	// render fully before writing so a failure can still produce an envelope
	var buf bytes.Buffer
	if err := report.Render(&buf, perf, h.now()); err != nil {
		failErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(perf)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleOrganizationPerformance(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		failErr(w, r, err)
		return
	}
	overview, err := h.performance.GetOrganizationOverview(r.Context(), actorOf(r), window)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, overview)
}

// Accounts

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accounts, err := h.directory.ListAccounts(r.Context(), actorOf(r), models.Role(q.Get("role")), q.Get("branchId"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, accounts)
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if !decode(w, r, &in) {
		return
	}
	a, err := h.directory.CreateAccount(r.Context(), actorOf(r), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, r, a)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.directory.GetAccount(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, a)
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var in service.AccountUpdate
	if !decode(w, r, &in) {
		return
	}
	a, err := h.directory.UpdateAccount(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, a)
}

func (h *Handler) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeactivateAccount(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, err)
		return
	}
	success(w, r, map[string]bool{"deactivated": true})
}
