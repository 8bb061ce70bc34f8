package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
)

// RatingInput is a submitted evaluation. Scores are keyed by category name.
type RatingInput struct {
	Scores  map[string]float64 `json:"scores" validate:"required,dive,gte=0,lte=100"`
	Comment string             `json:"comment" validate:"max=1000"`
}

// RatingService accepts new ratings and lists existing ones.
type RatingService struct {
	ratings RatingRepository
	staff   StaffRepository
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type RatingOption func(*RatingService)

func WithRatingClock(now func() time.Time) RatingOption {
	return func(s *RatingService) { s.now = now }
}

func WithRatingIDs(newID func() string) RatingOption {
	return func(s *RatingService) { s.newID = newID }
}

func NewRatingService(repos Repositories, logger *zap.Logger, opts ...RatingOption) *RatingService {
	if repos.Ratings == nil || repos.Staff == nil {
		panic("rating service requires ratings and staff repositories")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &RatingService{
		ratings: repos.Ratings,
		staff:   repos.Staff,
		logger:  logger.Named("ratings"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalizeScores resolves category names and requires every category
// exactly once.
func normalizeScores(raw map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	var issues []FieldIssue
	for name, v := range raw {
		c, ok := scoring.ParseCategory(name)
		if !ok {
			issues = append(issues, FieldIssue{Field: "scores[" + name + "]", Reason: "is not a rating category"})
			continue
		}
		if _, dup := out[string(c)]; dup {
			issues = append(issues, FieldIssue{Field: "scores[" + name + "]", Reason: "is given more than once"})
			continue
		}
		out[string(c)] = v
	}
	for _, c := range scoring.Categories() {
		if _, ok := out[string(c)]; !ok {
			issues = append(issues, FieldIssue{Field: "scores[" + string(c) + "]", Reason: "is required"})
		}
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}

// SubmitRating records a new evaluation of a staff member. The stored
// average is the mean of the seven category scores.
func (s *RatingService) SubmitRating(ctx context.Context, actor auth.Actor, staffID string, in RatingInput) (models.RatingRecord, error) {
	if !actor.Can(auth.PermRatingsSubmit) {
		return models.RatingRecord{}, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return models.RatingRecord{}, err
	}
	scores, err := normalizeScores(in.Scores)
	if err != nil {
		return models.RatingRecord{}, err
	}

	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return models.RatingRecord{}, err
	}
	if !st.Active {
		return models.RatingRecord{}, invalid("staffId", "belongs to an inactive staff member")
	}
	if actor.StaffID != "" && actor.StaffID == st.ID {
		return models.RatingRecord{}, ErrForbidden
	}

	var sum float64
	for _, v := range scores {
		sum += v
	}
	record := models.RatingRecord{
		ID:                s.newID(),
		StaffID:           st.ID,
		BranchID:          st.BranchID,
		OrganizationID:    st.OrganizationID,
		RatedBy:           actor.AccountID,
		RaterRole:         actor.Role,
		CategoryScores:    scores,
		AveragePercentage: sum / float64(len(scores)),
		Comment:           strings.TrimSpace(in.Comment),
		CreatedAt:         s.now().UTC(),
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.ratings.CreateRating(dbCtx, record); err != nil {
		return models.RatingRecord{}, mapRepoErr("create rating", err)
	}

	s.logger.Info("rating submitted",
		zap.String("rating_id", record.ID),
		zap.String("staff_id", record.StaffID),
		zap.String("rated_by", record.RatedBy),
		zap.Float64("average", record.AveragePercentage))
	return record, nil
}

// ListStaffRatings returns the ratings inside the window, newest first.
func (s *RatingService) ListStaffRatings(ctx context.Context, actor auth.Actor, staffID string, window scoring.Window) ([]models.RatingRecord, error) {
	if !actor.Can(auth.PermPerformanceRead) {
		return nil, ErrForbidden
	}
	st, err := loadStaffInScope(ctx, s.staff, actor, staffID)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	since := scoring.WindowStart(window, s.now().UTC())
	records, err := s.ratings.ListRatings(dbCtx, st.ID, since)
	if err != nil {
		return nil, mapRepoErr("list ratings", err)
	}
	return records, nil
}
