package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// WebinarReportRepository reads webinar registrations and attendance.
type WebinarReportRepository interface {
	RegistrationsBySchool(ctx context.Context, schoolID string) ([]models.RegistrationRow, error)
	AttendancePairs(ctx context.Context, schoolID string) ([]models.AttendancePair, error)
	GetWebinar(ctx context.Context, webinarID string) (*models.Webinar, error)
	RegistrationForSchool(ctx context.Context, schoolID, webinarID string) (*models.RegistrationRow, error)
	WebinarAttendanceRows(ctx context.Context, schoolID, webinarID string) ([]models.WebinarAttendanceRow, error)
	StudentWebinarRows(ctx context.Context, studentID string) ([]models.StudentWebinarRow, error)
}

// WebinarReportConfig tunes report caching.
type WebinarReportConfig struct {
	CacheTTL time.Duration
}

// WebinarReportService builds the webinar attendance report. Invited counts
// come from registration scope reconciled with recorded attendance, so a
// webinar can never report more attendees than invitees.
type WebinarReportService struct {
	repo    WebinarReportRepository
	cohorts CohortRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     WebinarReportConfig
}

// NewWebinarReportService constructs a webinar report service.
func NewWebinarReportService(repo WebinarReportRepository, cohorts CohortRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg WebinarReportConfig) *WebinarReportService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &WebinarReportService{
		repo:    repo,
		cohorts: cohorts,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// List returns every registered webinar of a school with invited and
// attended counts and the attendance rate.
func (s *WebinarReportService) List(ctx context.Context, schoolID string) (*dto.WebinarListResponse, bool, error) {
	cacheKey := makeInsightsCacheKey("webinars", schoolID)
	var cached dto.WebinarListResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get webinar list cache: %w", err)
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

	start := time.Now()
	invites, err := loadWebinarInvites(ctx, s.repo, s.cohorts, schoolID)
	if err != nil {
		return nil, false, fmt.Errorf("load webinar invites: %w", err)
	}
	observeQuery(s.metrics, "webinar_list", start)

	resp := &dto.WebinarListResponse{SchoolID: schoolID, Webinars: make([]dto.WebinarListItem, 0, len(invites.stats))}
	for _, stat := range invites.stats {
		resp.Webinars = append(resp.Webinars, dto.WebinarListItem{
			WebinarID:      stat.WebinarID,
			Title:          stat.Title,
			ScheduledAt:    stat.ScheduledAt,
			SchoolWide:     stat.SchoolWide,
			Invited:        stat.Invited,
			Attended:       stat.Attended,
			AttendanceRate: completionRate(stat.Attended, stat.Invited),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache webinar list", zap.Error(err))
		}
	}
	return resp, false, nil
}

// WebinarDetail returns a single webinar's attendance breakdown for one
// school: per-student attendance with watch progress and class-wise stats.
// The invited set is the registration scope's current roster unioned with
// every student who has an attendance record, so students who switched
// classes after registering stay counted.
func (s *WebinarReportService) WebinarDetail(ctx context.Context, schoolID, webinarID string) (*dto.WebinarDetailResponse, error) {
	webinar, err := s.repo.GetWebinar(ctx, webinarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "webinar not found")
		}
		return nil, fmt.Errorf("get webinar: %w", err)
	}

	exists, err := s.cohorts.SchoolExists(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	start := time.Now()
	var (
		reg     *models.RegistrationRow
		rows    []models.WebinarAttendanceRow
		roster  []models.Student
		classes []models.ClassGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reg, err = s.repo.RegistrationForSchool(gctx, schoolID, webinar.ID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.repo.WebinarAttendanceRows(gctx, schoolID, webinar.ID)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.cohorts.Students(gctx, models.CohortFilter{SchoolID: schoolID})
		return err
	})
	g.Go(func() error {
		var err error
		classes, err = s.cohorts.ClassesBySchool(gctx, schoolID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load webinar detail: %w", err)
	}
	observeQuery(s.metrics, "webinar_detail", start)

	var classIDs []string
	if reg != nil {
		classIDs = parseClassIDs(reg.ClassIDs)
	}
	schoolWide := len(classIDs) == 0
	scope := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		scope[id] = struct{}{}
	}

	names := classNameIndex(classes)
	recorded := make(map[string]models.WebinarAttendanceRow, len(rows))
	for _, row := range rows {
		recorded[row.StudentID] = row
	}

	watchPercent := func(row models.WebinarAttendanceRow) float64 {
		if !row.Attended || row.WatchDurationMinutes == nil {
			return 0
		}
		if webinar.DurationMinutes == nil || *webinar.DurationMinutes <= 0 {
			return 0
		}
		return scorePercent(float64(*row.WatchDurationMinutes), float64(*webinar.DurationMinutes))
	}

	attendance := make([]dto.WebinarAttendeeRow, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		if !schoolWide {
			if st.ClassID == nil {
				continue
			}
			if _, ok := scope[*st.ClassID]; !ok {
				continue
			}
		}
		seen[st.ID] = struct{}{}
		entry := dto.WebinarAttendeeRow{
			StudentID:  st.ID,
			FullName:   st.FullName,
			RollNumber: st.RollNumber,
			ClassID:    st.ClassID,
			ClassName:  classNameFor(names, st.ClassID),
			Status:     "absent",
		}
		if row, ok := recorded[st.ID]; ok && row.Attended {
			entry.Status = "attended"
			entry.Attended = true
			entry.WatchMinutes = row.WatchDurationMinutes
			entry.WatchPercent = watchPercent(row)
		}
		attendance = append(attendance, entry)
	}
	// Attendees outside the current registration scope stay invited.
	for _, row := range rows {
		if _, ok := seen[row.StudentID]; ok {
			continue
		}
		seen[row.StudentID] = struct{}{}
		entry := dto.WebinarAttendeeRow{
			StudentID:  row.StudentID,
			FullName:   row.FullName,
			RollNumber: row.RollNumber,
			ClassID:    row.ClassID,
			ClassName:  row.ClassName,
			Status:     "absent",
		}
		if row.Attended {
			entry.Status = "attended"
			entry.Attended = true
			entry.WatchMinutes = row.WatchDurationMinutes
			entry.WatchPercent = watchPercent(row)
		}
		attendance = append(attendance, entry)
	}

	type classAgg struct {
		attended int
		total    int
		watchSum float64
	}
	aggs := make(map[string]*classAgg)
	order := make([]string, 0)
	attended := 0
	percentSum := 0.0
	for _, entry := range attendance {
		name := "Unassigned"
		if entry.ClassName != nil {
			name = *entry.ClassName
		}
		agg, ok := aggs[name]
		if !ok {
			agg = &classAgg{}
			aggs[name] = agg
			order = append(order, name)
		}
		agg.total++
		if entry.Attended {
			attended++
			agg.attended++
			percentSum += entry.WatchPercent
			if entry.WatchMinutes != nil {
				agg.watchSum += float64(*entry.WatchMinutes)
			}
		}
	}

	classStats := make([]dto.ClassWebinarStat, 0, len(order))
	for _, name := range order {
		agg := aggs[name]
		avg := 0.0
		if agg.attended > 0 {
			avg = roundRate(agg.watchSum / float64(agg.attended))
		}
		classStats = append(classStats, dto.ClassWebinarStat{
			ClassName:       name,
			Attended:        agg.attended,
			Total:           agg.total,
			AvgWatchMinutes: avg,
		})
	}

	invited := len(attendance)
	avgWatchPercent := 0.0
	if attended > 0 {
		avgWatchPercent = roundRate(percentSum / float64(attended))
	}

	return &dto.WebinarDetailResponse{
		WebinarID:       webinar.ID,
		Title:           webinar.Title,
		Description:     webinar.Description,
		ScheduledAt:     webinar.ScheduledAt,
		DurationMinutes: webinar.DurationMinutes,
		SchoolWide:      schoolWide,
		Invited:         invited,
		Attended:        attended,
		Absent:          invited - attended,
		AttendanceRate:  completionRate(attended, invited),
		Attendance:      attendance,
		ClassStats:      classStats,
		AvgWatchPercent: avgWatchPercent,
	}, nil
}
