package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// passThresholdPct is the minimum score percentage counted as a pass.
const passThresholdPct = 60.0

// scoreBucketCount is the number of deciles in the distribution histogram.
const scoreBucketCount = 10

// AssessmentReportRepository reads assessment rollups and submission detail.
type AssessmentReportRepository interface {
	ListWithStats(ctx context.Context, schoolID string) ([]models.AssessmentStatRow, error)
	GetTemplate(ctx context.Context, templateID string) (*models.AssessmentTemplate, error)
	TemplateSubmissionScores(ctx context.Context, schoolID, templateID string) ([]models.SubmissionScore, error)
	StudentResponses(ctx context.Context, schoolID, templateID, studentID string) ([]models.StudentResponse, error)
	StudentAssessmentRows(ctx context.Context, schoolID, studentID string) ([]models.StudentAssessmentRow, error)
	ClassSubmissionAverages(ctx context.Context, schoolID, classID string) ([]models.StudentScore, error)
}

// AssessmentReportConfig tunes report caching.
type AssessmentReportConfig struct {
	CacheTTL time.Duration
}

// AssessmentReportService builds the assessment list and the per-template
// drill-down with score distribution and class slices.
type AssessmentReportService struct {
	repo    AssessmentReportRepository
	cohorts CohortRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AssessmentReportConfig
}

// NewAssessmentReportService constructs an assessment report service.
func NewAssessmentReportService(repo AssessmentReportRepository, cohorts CohortRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AssessmentReportConfig) *AssessmentReportService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &AssessmentReportService{
		repo:    repo,
		cohorts: cohorts,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// List returns every assessment of a school with participation stats. The
// invited count is the targeted class's roster size, or the whole school for
// school-wide assessments.
func (s *AssessmentReportService) List(ctx context.Context, schoolID string) (*dto.AssessmentListResponse, bool, error) {
	cacheKey := makeInsightsCacheKey("assessments", schoolID)
	var cached dto.AssessmentListResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get assessment list cache: %w", err)
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
		rows  []models.AssessmentStatRow
		sizes map[string]int
		total int
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
	g.Go(func() error {
		ids, err := s.cohorts.StudentIDs(gctx, models.CohortFilter{SchoolID: schoolID})
		if err != nil {
			return err
		}
		total = len(ids)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("load assessment stats: %w", err)
	}
	observeQuery(s.metrics, "assessment_list", start)

	resp := &dto.AssessmentListResponse{SchoolID: schoolID, Assessments: make([]dto.AssessmentListItem, 0, len(rows))}
	for _, row := range rows {
		invited := total
		if row.ClassID != nil {
			invited = sizes[*row.ClassID]
		}
		// Submissions count distinct students, each of whom was necessarily
		// invited, so departed submitters lift the roster-derived floor.
		if row.Submissions > invited {
			invited = row.Submissions
		}
		item := dto.AssessmentListItem{
			AssessmentID:   row.AssessmentID,
			TemplateID:     row.TemplateID,
			Title:          row.Title,
			ClassID:        row.ClassID,
			ClassName:      row.ClassName,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
			Completed:      row.Submissions,
			Invited:        invited,
			CompletionRate: completionRate(row.Submissions, invited),
		}
		if row.AverageScore != nil {
			avg := roundRate(*row.AverageScore)
			item.AverageScore = &avg
		}
		resp.Assessments = append(resp.Assessments, item)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache assessment list", zap.Error(err))
		}
	}
	return resp, false, nil
}

// TemplateReport builds the drill-down for one template: normalized
// questions, score distribution, pass rate and per-class slices.
func (s *AssessmentReportService) TemplateReport(ctx context.Context, schoolID, templateID string) (*dto.AssessmentDetailResponse, bool, error) {
	cacheKey := makeInsightsCacheKey("assessment", schoolID, templateID)
	var cached dto.AssessmentDetailResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get template report cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	template, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "assessment template not found")
		}
		return nil, false, fmt.Errorf("get template: %w", err)
	}

	questions, err := NormalizeQuestions(template.Questions)
	if err != nil {
		return nil, false, fmt.Errorf("normalize template %s: %w", templateID, err)
	}
	maxScore := questionSetMaxScore(questions)

	start := time.Now()
	scores, err := s.repo.TemplateSubmissionScores(ctx, schoolID, templateID)
	if err != nil {
		return nil, false, err
	}
	observeQuery(s.metrics, "template_report", start)

	resp := &dto.AssessmentDetailResponse{
		TemplateID:    template.ID,
		Title:         template.Title,
		Description:   template.Description,
		QuestionCount: len(questions),
		MaxScore:      maxScore,
		Questions:     questions,
		Submissions:   len(scores),
		Distribution:  make([]dto.ScoreBucket, scoreBucketCount),
		ClassStats:    []dto.ClassAssessmentStat{},
		Students:      make([]dto.AssessmentStudentRow, 0, len(scores)),
	}
	for i := range resp.Distribution {
		resp.Distribution[i] = dto.ScoreBucket{Label: fmt.Sprintf("%d-%d%%", i*10, (i+1)*10)}
	}

	type classAcc struct {
		name     string
		students map[string]struct{}
		total    float64
		count    int
		passed   int
	}
	byClass := make(map[string]*classAcc)

	var scoreSum float64
	var passed int
	for _, row := range scores {
		pct := scorePercent(row.TotalScore, maxScore)
		scoreSum += row.TotalScore
		if pct >= passThresholdPct {
			passed++
		}

		bucket := int(pct / 10)
		if bucket >= scoreBucketCount {
			bucket = scoreBucketCount - 1
		}
		resp.Distribution[bucket].Count++

		resp.Students = append(resp.Students, dto.AssessmentStudentRow{
			StudentID:   row.StudentID,
			FullName:    row.FullName,
			ClassName:   row.ClassName,
			Score:       row.TotalScore,
			MaxScore:    maxScore,
			Percent:     pct,
			RiskLevel:   scoreRiskLabel(row.TotalScore, maxScore),
			CompletedAt: row.CompletedAt,
		})

		if row.ClassID == nil {
			continue
		}
		acc, ok := byClass[*row.ClassID]
		if !ok {
			name := ""
			if row.ClassName != nil {
				name = *row.ClassName
			}
			acc = &classAcc{name: name, students: make(map[string]struct{})}
			byClass[*row.ClassID] = acc
		}
		acc.students[row.StudentID] = struct{}{}
		acc.total += row.TotalScore
		acc.count++
		if pct >= passThresholdPct {
			acc.passed++
		}
	}

	if len(scores) > 0 {
		avg := roundRate(scoreSum / float64(len(scores)))
		resp.AverageScore = &avg
		resp.PassRate = completionRate(passed, len(scores))
	}

	classIDs := make([]string, 0, len(byClass))
	for id := range byClass {
		classIDs = append(classIDs, id)
	}
	sort.Slice(classIDs, func(i, j int) bool {
		a, b := byClass[classIDs[i]], byClass[classIDs[j]]
		if a.name != b.name {
			return a.name < b.name
		}
		return classIDs[i] < classIDs[j]
	})
	for _, id := range classIDs {
		acc := byClass[id]
		stat := dto.ClassAssessmentStat{
			ClassID:   id,
			ClassName: acc.name,
			Students:  len(acc.students),
			Completed: acc.count,
			PassRate:  completionRate(acc.passed, acc.count),
		}
		if acc.count > 0 {
			avg := roundRate(acc.total / float64(acc.count))
			stat.AverageScore = &avg
		}
		resp.ClassStats = append(resp.ClassStats, stat)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache template report", zap.Error(err))
		}
	}
	return resp, false, nil
}

// StudentTemplateResponses returns one student's graded answers for a
// template, resolving option labels through the normalized question set.
func (s *AssessmentReportService) StudentTemplateResponses(ctx context.Context, schoolID, templateID, studentID string) (*dto.StudentResponsesResponse, error) {
	template, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment template not found")
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if _, err := resolveStudent(ctx, s.cohorts, schoolID, studentID); err != nil {
		return nil, err
	}

	questions, err := NormalizeQuestions(template.Questions)
	if err != nil {
		return nil, fmt.Errorf("normalize template %s: %w", templateID, err)
	}
	index := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}
	maxScore := questionSetMaxScore(questions)

	start := time.Now()
	responses, err := s.repo.StudentResponses(ctx, schoolID, templateID, studentID)
	if err != nil {
		return nil, err
	}
	observeQuery(s.metrics, "student_responses", start)

	resp := &dto.StudentResponsesResponse{
		TemplateID: templateID,
		StudentID:  studentID,
		MaxScore:   maxScore,
		Responses:  make([]dto.QuestionResponse, 0, len(responses)),
	}
	for _, row := range responses {
		item := dto.QuestionResponse{
			QuestionID: row.QuestionID,
			Answer:     row.ResponseValue,
			Score:      row.Score,
			Points:     defaultQuestionPoints,
		}
		if q, ok := index[row.QuestionID]; ok {
			item.Question = q.Text
			item.Points = q.Points
			item.AnswerText = resolveAnswerText(q, row.ResponseValue)
		}
		resp.TotalScore += row.Score
		resp.Responses = append(resp.Responses, item)
	}
	resp.Percent = scorePercent(resp.TotalScore, maxScore)
	return resp, nil
}

// resolveAnswerText maps a stored response value onto its option label,
// matching by option id first and scored value second.
func resolveAnswerText(q models.Question, value *string) *string {
	if value == nil {
		return nil
	}
	for _, opt := range q.Options {
		if opt.ID == *value {
			text := opt.Text
			return &text
		}
	}
	for _, opt := range q.Options {
		if opt.Value != nil && strconv.FormatFloat(*opt.Value, 'f', -1, 64) == *value {
			text := opt.Text
			return &text
		}
	}
	return nil
}
