package models

import (
	"strings"
	"time"
)

// RiskLevel buckets a student's wellbeing risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ParseRiskLevel validates a raw filter value against the known levels.
func ParseRiskLevel(raw string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(raw))) {
	case RiskLow:
		return RiskLow, true
	case RiskMedium:
		return RiskMedium, true
	case RiskHigh:
		return RiskHigh, true
	case RiskCritical:
		return RiskCritical, true
	default:
		return "", false
	}
}

// AppSession is one timestamped app-usage interval.
type AppSession struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
}

// DailyStreak is the one-per-(student, date) usage record.
type DailyStreak struct {
	ID                string    `db:"id" json:"id"`
	StudentID         string    `db:"student_id" json:"student_id"`
	ActivityDate      time.Time `db:"activity_date" json:"activity_date"`
	AppOpened         bool      `db:"app_opened" json:"app_opened"`
	ActivityCompleted bool      `db:"activity_completed" json:"activity_completed"`
}

// StreakSummary is the derived current/longest streak state, maintained by an
// external process and read-only here.
type StreakSummary struct {
	StudentID      string     `db:"student_id" json:"student_id"`
	CurrentStreak  int        `db:"current_streak" json:"current_streak"`
	LongestStreak  int        `db:"longest_streak" json:"longest_streak"`
	LastActiveDate *time.Time `db:"last_active_date" json:"last_active_date,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AssessmentAgg is the per-student assessment-completion aggregate. The
// average is nil when the student has no scored responses.
type AssessmentAgg struct {
	StudentID      string   `db:"student_id"`
	CompletedCount int      `db:"completed_count"`
	AverageScore   *float64 `db:"avg_score"`
}

// ActivityAgg is the per-student activity-completion aggregate. Only
// SUBMITTED and VERIFIED submissions count.
type ActivityAgg struct {
	StudentID      string `db:"student_id"`
	CompletedCount int    `db:"completed_count"`
}

// WebinarAgg is the per-student webinar-attendance aggregate.
type WebinarAgg struct {
	StudentID     string `db:"student_id"`
	AttendedCount int    `db:"attended_count"`
}

// StreakAgg is the per-student streak-state aggregate.
type StreakAgg struct {
	StudentID      string     `db:"student_id"`
	CurrentStreak  int        `db:"current_streak"`
	LongestStreak  int        `db:"longest_streak"`
	LastActiveDate *time.Time `db:"last_active_date"`
}

// SessionAgg is the per-student session-count aggregate within a window.
type SessionAgg struct {
	StudentID    string `db:"student_id"`
	SessionCount int    `db:"session_count"`
	TotalMinutes int    `db:"total_minutes"`
}

// DailyDistinct counts distinct active students on one calendar day.
type DailyDistinct struct {
	Day   time.Time `db:"day"`
	Count int       `db:"count"`
}

// LeaderboardMetric selects the aggregate a leaderboard ranks by.
type LeaderboardMetric string

const (
	LeaderboardAssessments LeaderboardMetric = "assessments"
	LeaderboardActivities  LeaderboardMetric = "activities"
	LeaderboardWebinars    LeaderboardMetric = "webinars"
)

// ParseLeaderboardMetric validates the leaderboard type query value.
func ParseLeaderboardMetric(raw string) (LeaderboardMetric, bool) {
	switch LeaderboardMetric(strings.ToLower(strings.TrimSpace(raw))) {
	case LeaderboardAssessments:
		return LeaderboardAssessments, true
	case LeaderboardActivities:
		return LeaderboardActivities, true
	case LeaderboardWebinars:
		return LeaderboardWebinars, true
	default:
		return "", false
	}
}

// LeaderboardRow is one ranked entry before pagination.
type LeaderboardRow struct {
	StudentID string  `db:"student_id"`
	FullName  string  `db:"full_name"`
	ClassID   *string `db:"class_id"`
	ClassName *string `db:"class_name"`
	Score     float64 `db:"score"`
}
