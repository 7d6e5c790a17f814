package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// ActivityReportRepository reads activity assignments and submission states.
type ActivityReportRepository interface {
	ListWithStats(ctx context.Context, schoolID string) ([]models.AssignmentStatRow, error)
	GetAssignment(ctx context.Context, schoolID, assignmentID string) (*models.ActivityAssignment, error)
	SubmissionsForAssignment(ctx context.Context, assignmentID string) ([]models.AssignmentSubmissionRow, error)
	StudentActivityRows(ctx context.Context, schoolID, studentID string, status *models.SubmissionStatus) ([]models.StudentActivityRow, error)
	StatusBreakdown(ctx context.Context, schoolID, studentID string) ([]models.GroupCount, error)
	CountAssignmentsForClass(ctx context.Context, classID string) (int, error)
}

// ActivityReportConfig tunes report caching.
type ActivityReportConfig struct {
	CacheTTL time.Duration
}

// ActivityReportService builds the per-assignment activity report. Submitted
// and verified submissions both count as completed; pending and rejected do
// not.
type ActivityReportService struct {
	repo    ActivityReportRepository
	cohorts CohortRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ActivityReportConfig
}

// NewActivityReportService constructs an activity report service.
func NewActivityReportService(repo ActivityReportRepository, cohorts CohortRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ActivityReportConfig) *ActivityReportService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ActivityReportService{
		repo:    repo,
		cohorts: cohorts,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// List returns every activity assignment of a school with its submission
// status counts and completion rate against the assigned class roster.
func (s *ActivityReportService) List(ctx context.Context, schoolID string) (*dto.ActivityListResponse, bool, error) {
	cacheKey := makeInsightsCacheKey("activities", schoolID)
	var cached dto.ActivityListResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get activity list cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	exists, err := s.cohorts.SchoolExists(ctx, schoolID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	var (
		rows  []models.AssignmentStatRow
		sizes map[string]int
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListWithStats(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		counts, err := s.cohorts.StudentCountsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		sizes = groupCountMap(counts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("load activity stats: %w", err)
	}
	observeQuery(s.metrics, "activity_list", start)

	resp := &dto.ActivityListResponse{SchoolID: schoolID, Activities: make([]dto.ActivityListItem, 0, len(rows))}
	for _, row := range rows {
		invited := sizes[row.ClassID]
		done := row.Submitted + row.Verified
		// Every submission implies a past assignment, so the current roster
		// count never undercounts the invited set.
		if done > invited {
			invited = done
		}
		resp.Activities = append(resp.Activities, dto.ActivityListItem{
			AssignmentID:   row.AssignmentID,
			Title:          row.Title,
			ClassID:        row.ClassID,
			ClassName:      row.ClassName,
			DueDate:        row.DueDate,
			CreatedAt:      row.CreatedAt,
			Pending:        row.Pending,
			Submitted:      row.Submitted,
			Verified:       row.Verified,
			Rejected:       row.Rejected,
			Completed:      done,
			Invited:        invited,
			CompletionRate: completionRate(done, invited),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache activity list", zap.Error(err))
		}
	}
	return resp, false, nil
}

// AssignmentDetail returns one assignment's drill-down: the assigned class
// roster merged with every recorded submission. A student who moved out of
// the class after submitting stays in the list, so completed can never
// exceed the assigned total.
func (s *ActivityReportService) AssignmentDetail(ctx context.Context, schoolID, assignmentID string) (*dto.ActivityDetailResponse, error) {
	assignment, err := s.repo.GetAssignment(ctx, schoolID, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity assignment not found")
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	var (
		roster      []models.Student
		submissions []models.AssignmentSubmissionRow
		classes     []models.ClassGroup
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.cohorts.Students(gctx, models.CohortFilter{SchoolID: schoolID, ClassID: assignment.ClassID})
		return err
	})
	g.Go(func() error {
		var err error
		submissions, err = s.repo.SubmissionsForAssignment(gctx, assignment.ID)
		return err
	})
	g.Go(func() error {
		var err error
		classes, err = s.cohorts.ClassesBySchool(gctx, schoolID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load assignment detail: %w", err)
	}
	observeQuery(s.metrics, "activity_detail", start)

	byStudent := make(map[string]models.AssignmentSubmissionRow, len(submissions))
	for _, sub := range submissions {
		byStudent[sub.StudentID] = sub
	}

	completions := make([]dto.ActivityCompletionRow, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	completed := 0
	add := func(id, name string, status models.SubmissionStatus, submittedAt *time.Time) {
		if status.Completed() {
			completed++
		}
		completions = append(completions, dto.ActivityCompletionRow{
			StudentID:   id,
			FullName:    name,
			Status:      strings.ToLower(string(status)),
			SubmittedAt: submittedAt,
		})
	}
	for _, st := range roster {
		seen[st.ID] = struct{}{}
		if sub, ok := byStudent[st.ID]; ok {
			add(st.ID, st.FullName, sub.Status, sub.SubmittedAt)
			continue
		}
		add(st.ID, st.FullName, models.SubmissionPending, nil)
	}
	// Submitters no longer on the class roster keep their place in the
	// assigned set.
	for _, sub := range submissions {
		if _, ok := seen[sub.StudentID]; ok {
			continue
		}
		seen[sub.StudentID] = struct{}{}
		add(sub.StudentID, sub.FullName, sub.Status, sub.SubmittedAt)
	}

	names := classNameIndex(classes)
	total := len(completions)
	return &dto.ActivityDetailResponse{
		AssignmentID:   assignment.ID,
		Title:          assignment.Title,
		Description:    assignment.Description,
		ClassID:        assignment.ClassID,
		ClassName:      classNameFor(names, &assignment.ClassID),
		DueDate:        assignment.DueDate,
		TotalAssigned:  total,
		Completed:      completed,
		Pending:        total - completed,
		CompletionRate: completionRate(completed, total),
		Completions:    completions,
	}, nil
}
