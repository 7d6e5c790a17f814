package dto

import "time"

// RiskDistribution buckets cohort risk counts. HIGH and CRITICAL fold into
// the high bucket; the three counts always sum to the cohort size.
type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// FamilyCompletion carries done/total/rate for one metric family.
type FamilyCompletion struct {
	Done  int     `json:"done"`
	Total int     `json:"total"`
	Rate  float64 `json:"rate"`
}

// TopPerformer is one entry of the streak-ranked shortlist.
type TopPerformer struct {
	StudentID     string  `json:"studentId"`
	FullName      string  `json:"fullName"`
	ClassName     *string `json:"className,omitempty"`
	CurrentStreak int     `json:"currentStreak"`
}

// AtRiskStudent is one entry of the high/critical shortlist.
type AtRiskStudent struct {
	StudentID      string     `json:"studentId"`
	FullName       string     `json:"fullName"`
	ClassName      *string    `json:"className,omitempty"`
	RiskLevel      string     `json:"riskLevel"`
	WellbeingScore *float64   `json:"wellbeingScore,omitempty"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
}

// OverviewResponse is the school-wide engagement summary.
type OverviewResponse struct {
	SchoolID         string           `json:"schoolId"`
	WindowDays       int              `json:"windowDays"`
	TotalStudents    int              `json:"totalStudents"`
	TotalClasses     int              `json:"totalClasses"`
	AverageWellbeing *float64         `json:"avgWellbeing,omitempty"`
	AverageStreak    float64          `json:"avgStreak"`
	TotalSessions    int              `json:"totalSessions"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	Assessments      FamilyCompletion `json:"assessments"`
	Activities       FamilyCompletion `json:"activities"`
	Webinars         FamilyCompletion `json:"webinars"`
	TopPerformers    []TopPerformer   `json:"topPerformers"`
	AtRiskStudents   []AtRiskStudent  `json:"atRiskStudents"`
}

// ClassSummary is one class row in the batched class list.
type ClassSummary struct {
	ClassID      string           `json:"classId"`
	Name         string           `json:"name"`
	Grade        *string          `json:"grade,omitempty"`
	TeacherID    *string          `json:"teacherId,omitempty"`
	StudentCount int              `json:"studentCount"`
	Assessments  FamilyCompletion `json:"assessments"`
	Activities   FamilyCompletion `json:"activities"`
	Webinars     FamilyCompletion `json:"webinars"`
}

// ClassListResponse wraps the per-class summaries.
type ClassListResponse struct {
	SchoolID string         `json:"schoolId"`
	Classes  []ClassSummary `json:"classes"`
}

// ClassDetailResponse is the full scope summary for one class cohort.
type ClassDetailResponse struct {
	ClassSummary
	AverageWellbeing *float64         `json:"avgWellbeing,omitempty"`
	AverageStreak    float64          `json:"avgStreak"`
	TotalSessions    int              `json:"totalSessions"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	TopPerformers    []TopPerformer   `json:"topPerformers"`
	AtRiskStudents   []AtRiskStudent  `json:"atRiskStudents"`
}

// TrendPoint is one gap-free daily entry of the engagement series.
type TrendPoint struct {
	Date           string  `json:"date"`
	AssessmentsPct float64 `json:"assessmentsPct"`
	ActivitiesPct  float64 `json:"activitiesPct"`
	WebinarsPct    float64 `json:"webinarsPct"`
}

// TrendResponse carries the fixed-length daily series.
type TrendResponse struct {
	SchoolID  string       `json:"schoolId"`
	Days      int          `json:"days"`
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Points    []TrendPoint `json:"points"`
}

// LeaderboardEntry is one ranked row of a leaderboard page.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	StudentID string  `json:"studentId"`
	FullName  string  `json:"fullName"`
	ClassName *string `json:"className,omitempty"`
	Score     float64 `json:"score"`
}

// LeaderboardResponse is one page of a ranked cohort. Total reflects the
// unpaginated ranked set inside the lookback window.
type LeaderboardResponse struct {
	SchoolID string             `json:"schoolId"`
	Type     string             `json:"type"`
	Days     int                `json:"days"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
	Entries  []LeaderboardEntry `json:"entries"`
}
