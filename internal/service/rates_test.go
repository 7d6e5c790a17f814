package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpulse/insights-api/internal/models"
)

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		name  string
		done  int
		total int
		want  float64
	}{
		{name: "half", done: 3, total: 6, want: 50.0},
		{name: "rounded to one decimal", done: 1, total: 3, want: 33.3},
		{name: "rounds half up", done: 1, total: 16, want: 6.3},
		{name: "zero total", done: 5, total: 0, want: 0},
		{name: "negative total", done: 5, total: -2, want: 0},
		{name: "over 100 clamps", done: 7, total: 5, want: 100},
		{name: "exact full", done: 4, total: 4, want: 100},
		{name: "nothing done", done: 0, total: 9, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, completionRate(tc.done, tc.total))
		})
	}
}

func TestFamilyCompletionClampsDone(t *testing.T) {
	fc := familyCompletion(7, 5)
	assert.Equal(t, 5, fc.Done)
	assert.Equal(t, 5, fc.Total)
	assert.Equal(t, 100.0, fc.Rate)
}

func TestFamilyCompletionZeroTotal(t *testing.T) {
	fc := familyCompletion(0, 0)
	assert.Equal(t, 0, fc.Done)
	assert.Equal(t, 0, fc.Total)
	assert.Equal(t, 0.0, fc.Rate)
}

func TestZeroGuardRate(t *testing.T) {
	cases := []struct {
		name  string
		done  int
		total int
		want  float64
	}{
		{name: "orphaned work counts as full", done: 3, total: 0, want: 100},
		{name: "nothing assigned nothing done", done: 0, total: 0, want: 0},
		{name: "normal ratio", done: 1, total: 2, want: 50.0},
		{name: "done above total clamps", done: 4, total: 2, want: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, zeroGuardRate(tc.done, tc.total))
		})
	}
}

func TestFoldRisk(t *testing.T) {
	low := models.RiskLow
	medium := models.RiskMedium
	high := models.RiskHigh
	critical := models.RiskCritical
	unknown := models.RiskLevel("ELEVATED")

	assert.Equal(t, riskLabelLow, foldRisk(nil))
	assert.Equal(t, riskLabelLow, foldRisk(&low))
	assert.Equal(t, riskLabelMedium, foldRisk(&medium))
	assert.Equal(t, riskLabelHigh, foldRisk(&high))
	assert.Equal(t, riskLabelHigh, foldRisk(&critical))
	assert.Equal(t, riskLabelHigh, foldRisk(&unknown))
}

func TestScoreRiskLabelBuckets(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		max   float64
		want  string
	}{
		{name: "low band", score: 10, max: 100, want: riskLabelLow},
		{name: "just below medium", score: 32.9, max: 100, want: riskLabelLow},
		{name: "medium band", score: 33, max: 100, want: riskLabelMedium},
		{name: "high band", score: 70, max: 100, want: riskLabelHigh},
		{name: "boundary at 0.66", score: 66, max: 100, want: riskLabelHigh},
		{name: "full score", score: 100, max: 100, want: riskLabelHigh},
		{name: "zero max reads low", score: 5, max: 0, want: riskLabelLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scoreRiskLabel(tc.score, tc.max))
		})
	}
}

func TestScorePercent(t *testing.T) {
	assert.Equal(t, 75.0, scorePercent(15, 20))
	assert.Equal(t, 33.3, scorePercent(1, 3))
	assert.Equal(t, 0.0, scorePercent(5, 0))
	assert.Equal(t, 100.0, scorePercent(25, 20))
	assert.Equal(t, 0.0, scorePercent(-3, 20))
}

func TestEngagementScore(t *testing.T) {
	assert.Equal(t, 0.0, engagementScore(0, 0))
	assert.Equal(t, 45.0, engagementScore(3, 3))
	assert.Equal(t, 100.0, engagementScore(10, 0))
	assert.Equal(t, 100.0, engagementScore(12, 8))
}

func TestMeanFloat(t *testing.T) {
	a, b := 4.0, 7.1
	mean := meanFloat([]*float64{&a, nil, &b})
	require.NotNil(t, mean)
	assert.Equal(t, 5.6, *mean)

	assert.Nil(t, meanFloat(nil))
	assert.Nil(t, meanFloat([]*float64{nil, nil}))
}

func TestRoundRate(t *testing.T) {
	assert.Equal(t, 33.3, roundRate(33.333))
	assert.Equal(t, 66.7, roundRate(66.666))
	assert.Equal(t, 50.0, roundRate(50.0))
	assert.Equal(t, -12.3, roundRate(-12.345))
}
