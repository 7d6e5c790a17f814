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
)

// ObservationRepository reads qualitative notes and automated risk alerts.
type ObservationRepository interface {
	RecentObservations(ctx context.Context, studentID string, limit int) ([]models.Observation, error)
	RecentAlerts(ctx context.Context, studentID string, since time.Time) ([]models.RiskAlert, error)
}

// ProfileConfig tunes the profile composition windows.
type ProfileConfig struct {
	WindowDays      int
	NoteLimit       int
	AlertWindowDays int
}

// ProfileService composes the full student profile: identity, engagement
// aggregates, assessment/activity/webinar histories, in-class comparison and
// recent observations. Every field is computed from stored data; nothing is
// sampled or estimated. Profiles are never cached: counsellor notes and risk
// alerts have to reflect the latest writes.
type ProfileService struct {
	cohorts      CohortRepository
	engagement   EngagementRepository
	assessments  AssessmentReportRepository
	activities   ActivityReportRepository
	webinars     WebinarReportRepository
	observations ObservationRepository
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          ProfileConfig
	now          func() time.Time
}

// NewProfileService constructs a profile service.
func NewProfileService(cohorts CohortRepository, engagement EngagementRepository, assessments AssessmentReportRepository, activities ActivityReportRepository, webinars WebinarReportRepository, observations ObservationRepository, metrics *MetricsService, logger *zap.Logger, cfg ProfileConfig) *ProfileService {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.NoteLimit <= 0 {
		cfg.NoteLimit = 10
	}
	if cfg.AlertWindowDays <= 0 {
		cfg.AlertWindowDays = 30
	}
	return &ProfileService{
		cohorts:      cohorts,
		engagement:   engagement,
		assessments:  assessments,
		activities:   activities,
		webinars:     webinars,
		observations: observations,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Profile composes one student's profile document.
func (s *ProfileService) Profile(ctx context.Context, schoolID, studentID string) (*dto.StudentProfileResponse, error) {
	student, err := resolveStudent(ctx, s.cohorts, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	nowUTC := s.now().UTC()
	sessionFrom := nowUTC.AddDate(0, 0, -s.cfg.WindowDays)
	alertSince := nowUTC.AddDate(0, 0, -s.cfg.AlertWindowDays)

	var (
		className    *string
		assessRows   []models.StudentAssessmentRow
		classScores  []models.StudentScore
		activityRows []models.StudentActivityRow
		breakdown    []models.GroupCount
		classTotal   int
		webinarRows  []models.StudentWebinarRow
		regs         []models.RegistrationRow
		streaks      map[string]models.StreakAgg
		sessions     map[string]models.SessionAgg
		notes        []models.Observation
		alerts       []models.RiskAlert
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if student.ClassID == nil {
			return nil
		}
		class, err := s.cohorts.GetClass(gctx, schoolID, *student.ClassID)
		if err != nil {
			// A dangling class reference degrades to an unnamed class rather
			// than failing the profile.
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		className = &class.Name
		return nil
	})
	g.Go(func() error {
		var err error
		assessRows, err = s.assessments.StudentAssessmentRows(gctx, schoolID, studentID)
		return err
	})
	g.Go(func() error {
		if student.ClassID == nil {
			return nil
		}
		var err error
		classScores, err = s.assessments.ClassSubmissionAverages(gctx, schoolID, *student.ClassID)
		return err
	})
	g.Go(func() error {
		var err error
		activityRows, err = s.activities.StudentActivityRows(gctx, schoolID, studentID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = s.activities.StatusBreakdown(gctx, schoolID, studentID)
		return err
	})
	g.Go(func() error {
		if student.ClassID == nil {
			return nil
		}
		var err error
		classTotal, err = s.activities.CountAssignmentsForClass(gctx, *student.ClassID)
		return err
	})
	g.Go(func() error {
		var err error
		webinarRows, err = s.webinars.StudentWebinarRows(gctx, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		regs, err = s.webinars.RegistrationsBySchool(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		var err error
		streaks, err = s.engagement.StreakStates(gctx, []string{studentID})
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.engagement.SessionCounts(gctx, []string{studentID}, sessionFrom, nowUTC)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = s.observations.RecentObservations(gctx, studentID, s.cfg.NoteLimit)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = s.observations.RecentAlerts(gctx, studentID, alertSince)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compose profile: %w", err)
	}
	observeQuery(s.metrics, "profile_compose", start)

	assessItems := make([]dto.StudentAssessmentItem, 0, len(assessRows))
	var scoreSum float64
	for _, row := range assessRows {
		maxScore := templateMaxScore(s.logger, row.Questions, row.ResponseCount)
		assessItems = append(assessItems, dto.StudentAssessmentItem{
			AssessmentID: row.AssessmentID,
			Title:        row.Title,
			Score:        row.TotalScore,
			MaxScore:     maxScore,
			RiskLevel:    scoreRiskLabel(row.TotalScore, maxScore),
			CompletedAt:  row.CompletedAt,
		})
		scoreSum += row.TotalScore
	}

	// History rows arrive newest first; the chartable trend runs oldest first.
	trend := make([]dto.PerformancePoint, 0, len(assessItems))
	for i := len(assessItems) - 1; i >= 0; i-- {
		item := assessItems[i]
		trend = append(trend, dto.PerformancePoint{
			Date:     item.CompletedAt.Format(trendDateLayout),
			Score:    item.Score,
			MaxScore: item.MaxScore,
			Percent:  scorePercent(item.Score, item.MaxScore),
		})
	}

	classRank, classAverage := denseRank(classScores, studentID)

	counts := groupCountMap(breakdown)
	completedActivities := counts[string(models.SubmissionSubmitted)] + counts[string(models.SubmissionVerified)]

	activityItems := make([]dto.StudentActivityItem, 0, len(activityRows))
	for _, row := range activityRows {
		activityItems = append(activityItems, dto.StudentActivityItem{
			SubmissionID: row.SubmissionID,
			AssignmentID: row.AssignmentID,
			Title:        row.Title,
			Status:       string(row.Status),
			DueDate:      row.DueDate,
			SubmittedAt:  row.SubmittedAt,
		})
	}

	attendedSet := make(map[string]struct{})
	webinarItems := make([]dto.StudentWebinarItem, 0, len(webinarRows))
	for _, row := range webinarRows {
		if row.Attended {
			attendedSet[row.WebinarID] = struct{}{}
		}
		webinarItems = append(webinarItems, dto.StudentWebinarItem{
			WebinarID:    row.WebinarID,
			Title:        row.Title,
			ScheduledAt:  row.ScheduledAt,
			Attended:     row.Attended,
			WatchMinutes: row.WatchDurationMinutes,
		})
	}
	invited := studentInvitedWebinars(regs, student.ClassID, attendedSet)
	attended := len(attendedSet)

	noteItems := make([]dto.ProfileNote, 0, len(notes))
	for _, note := range notes {
		noteItems = append(noteItems, dto.ProfileNote{
			ID:         note.ID,
			Note:       note.Note,
			AuthorName: note.AuthorName,
			CreatedAt:  note.CreatedAt,
		})
	}
	alertItems := make([]dto.ProfileAlert, 0, len(alerts))
	for _, alert := range alerts {
		alertItems = append(alertItems, dto.ProfileAlert{
			ID:        alert.ID,
			AlertType: alert.AlertType,
			Severity:  alert.Severity,
			Message:   alert.Message,
			CreatedAt: alert.CreatedAt,
		})
	}

	streak := streaks[studentID]
	resp := &dto.StudentProfileResponse{
		StudentID:      student.ID,
		FullName:       student.FullName,
		Email:          student.Email,
		ClassID:        student.ClassID,
		ClassName:      className,
		Grade:          student.Grade,
		RollNumber:     student.RollNumber,
		RiskLevel:      foldRisk(student.RiskLevel),
		WellbeingScore: student.WellbeingScore,

		EngagementScore: engagementScore(len(assessItems), attended),
		CurrentStreak:   streak.CurrentStreak,
		LongestStreak:   streak.LongestStreak,
		LastActive:      streak.LastActiveDate,
		TotalSessions:   sessions[studentID].SessionCount,

		CompletedAssessments:   len(assessItems),
		ClassAverage:           classAverage,
		ClassRank:              classRank,
		ActivityCompletionRate: zeroGuardRate(completedActivities, classTotal),
		AttendanceRate:         completionRate(attended, invited),

		PerformanceTrend: trend,
		Assessments:      assessItems,
		Activities:       activityItems,
		Webinars:         webinarItems,
		Notes:            noteItems,
		Alerts:           alertItems,
	}
	if len(assessItems) > 0 {
		avg := roundRate(scoreSum / float64(len(assessItems)))
		resp.AverageScore = &avg
	}
	return resp, nil
}

// denseRank walks the descending class scores once, producing the class
// average and the student's dense rank (ties share a rank). A student with no
// submissions has no rank.
func denseRank(rows []models.StudentScore, studentID string) (*int, *float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	var sum float64
	rank := 0
	var lastScore float64
	var found *int
	for i, row := range rows {
		sum += row.Score
		if i == 0 || row.Score < lastScore {
			rank++
			lastScore = row.Score
		}
		if row.StudentID == studentID {
			r := rank
			found = &r
		}
	}
	avg := roundRate(sum / float64(len(rows)))
	return found, &avg
}
