package dto

import "time"

// ProfileNote is one observation entry on a student profile.
type ProfileNote struct {
	ID         string    `json:"id"`
	Note       string    `json:"note"`
	AuthorName *string   `json:"authorName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProfileAlert is one recent risk alert on a student profile.
type ProfileAlert struct {
	ID        string    `json:"id"`
	AlertType string    `json:"alertType"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// PerformancePoint is one completed assessment on the performance trend,
// oldest first.
type PerformancePoint struct {
	Date     string  `json:"date"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
	Percent  float64 `json:"percent"`
}

// StudentProfileResponse composes identity, engagement, academics and
// observations into one profile document.
type StudentProfileResponse struct {
	StudentID      string   `json:"studentId"`
	FullName       string   `json:"fullName"`
	Email          *string  `json:"email,omitempty"`
	ClassID        *string  `json:"classId,omitempty"`
	ClassName      *string  `json:"className,omitempty"`
	Grade          *string  `json:"grade,omitempty"`
	RollNumber     *string  `json:"rollNumber,omitempty"`
	RiskLevel      string   `json:"riskLevel"`
	WellbeingScore *float64 `json:"wellbeingScore,omitempty"`

	EngagementScore float64    `json:"engagementScore"`
	CurrentStreak   int        `json:"currentStreak"`
	LongestStreak   int        `json:"longestStreak"`
	LastActive      *time.Time `json:"lastActive,omitempty"`
	TotalSessions   int        `json:"totalSessions"`

	CompletedAssessments   int      `json:"completedAssessments"`
	AverageScore           *float64 `json:"avgScore,omitempty"`
	ClassAverage           *float64 `json:"classAverage,omitempty"`
	ClassRank              *int     `json:"classRank,omitempty"`
	ActivityCompletionRate float64  `json:"activityCompletionRate"`
	AttendanceRate         float64  `json:"attendanceRate"`

	PerformanceTrend []PerformancePoint      `json:"performanceTrend"`
	Assessments      []StudentAssessmentItem `json:"assessments"`
	Activities       []StudentActivityItem   `json:"activities"`
	Webinars         []StudentWebinarItem    `json:"webinars"`
	Notes            []ProfileNote           `json:"notes"`
	Alerts           []ProfileAlert          `json:"alerts"`
}
