package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

func TestTrendServiceBuildsGapFreeSeries(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true, ids: []string{"stu-1", "stu-2", "stu-3", "stu-4"}}
	engagement := &fakeEngagementRepo{
		dailyAssessments: []models.DailyDistinct{
			{Day: time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC), Count: 2},
			{Day: time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), Count: 4},
			{Day: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), Count: 1},
		},
		dailyActivities: []models.DailyDistinct{
			{Day: time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC), Count: 4},
		},
	}

	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewTrendService(cohorts, engagement, cacheSvc, nil, zap.NewNop(), TrendConfig{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC) }

	resp, cacheHit, err := svc.Trends(context.Background(), "school-1", 3)
	require.NoError(t, err)
	assert.False(t, cacheHit)

	assert.Equal(t, 3, resp.Days)
	assert.Equal(t, "2026-05-07", resp.StartDate)
	assert.Equal(t, "2026-05-10", resp.EndDate)

	// A 3-day lookback spans both endpoints, so the series has 4 points.
	require.Len(t, resp.Points, 4)
	assert.Equal(t, "2026-05-07", resp.Points[0].Date)
	assert.Equal(t, "2026-05-08", resp.Points[1].Date)
	assert.Equal(t, "2026-05-09", resp.Points[2].Date)
	assert.Equal(t, "2026-05-10", resp.Points[3].Date)

	assert.Equal(t, 100.0, resp.Points[0].ActivitiesPct)
	assert.Equal(t, 0.0, resp.Points[0].AssessmentsPct)
	assert.Equal(t, 50.0, resp.Points[1].AssessmentsPct)
	assert.Equal(t, 0.0, resp.Points[2].AssessmentsPct)
	assert.Equal(t, 25.0, resp.Points[3].AssessmentsPct)
	for _, p := range resp.Points {
		assert.Equal(t, 0.0, p.WebinarsPct)
	}

	// The 2026-05-06 row predates the window and must not grow the series.
	assert.Equal(t, time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC), engagement.lastFrom)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), engagement.lastTo)
}

func TestTrendServiceCapsLookback(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true, ids: []string{"stu-1"}}
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewTrendService(cohorts, &fakeEngagementRepo{}, cacheSvc, nil, zap.NewNop(), TrendConfig{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }

	resp, _, err := svc.Trends(context.Background(), "school-1", 3000)
	require.NoError(t, err)
	assert.Equal(t, 90, resp.Days)
	assert.Len(t, resp.Points, 91)
}

func TestTrendServiceEmptyCohortStaysZero(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true}
	engagement := &fakeEngagementRepo{
		dailyAssessments: []models.DailyDistinct{
			{Day: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), Count: 3},
		},
	}
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewTrendService(cohorts, engagement, cacheSvc, nil, zap.NewNop(), TrendConfig{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }

	resp, _, err := svc.Trends(context.Background(), "school-1", 1)
	require.NoError(t, err)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, 0.0, resp.Points[1].AssessmentsPct)
}

func TestTrendServiceCachesSeries(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true, ids: []string{"stu-1"}}
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewTrendService(cohorts, &fakeEngagementRepo{}, cacheSvc, nil, zap.NewNop(), TrendConfig{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	first, cacheHit, err := svc.Trends(ctx, "school-1", 7)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, cohorts.idsCalls)

	second, cacheHit2, err := svc.Trends(ctx, "school-1", 7)
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, 1, cohorts.idsCalls)
	assert.Equal(t, first, second)
}

func TestTrendServiceSchoolNotFound(t *testing.T) {
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewTrendService(&fakeCohortRepo{}, &fakeEngagementRepo{}, cacheSvc, nil, zap.NewNop(), TrendConfig{})

	_, _, err := svc.Trends(context.Background(), "missing", 30)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTrendServiceFamilyErrorPassthrough(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true, ids: []string{"stu-1"}}
	engagement := &fakeEngagementRepo{err: assert.AnError}
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewTrendService(cohorts, engagement, cacheSvc, nil, zap.NewNop(), TrendConfig{})

	_, _, err := svc.Trends(context.Background(), "school-1", 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
