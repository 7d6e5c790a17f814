package dto

import (
	"time"

	"github.com/schoolpulse/insights-api/internal/models"
)

// StudentEngagementRow is one roster row joined with its engagement columns.
type StudentEngagementRow struct {
	StudentID            string     `json:"studentId"`
	FullName             string     `json:"fullName"`
	Email                *string    `json:"email,omitempty"`
	ClassID              *string    `json:"classId,omitempty"`
	ClassName            *string    `json:"className,omitempty"`
	RollNumber           *string    `json:"rollNumber,omitempty"`
	Grade                *string    `json:"grade,omitempty"`
	RiskLevel            string     `json:"riskLevel"`
	WellbeingScore       *float64   `json:"wellbeingScore,omitempty"`
	CompletedAssessments int        `json:"completedAssessments"`
	CompletedActivities  int        `json:"completedActivities"`
	AttendedWebinars     int        `json:"attendedWebinars"`
	CurrentStreak        int        `json:"currentStreak"`
	LastActive           *time.Time `json:"lastActive,omitempty"`
}

// StudentListResponse is one roster page with engagement columns attached.
type StudentListResponse struct {
	Students   []StudentEngagementRow `json:"students"`
	Pagination models.Pagination      `json:"pagination"`
}

// StudentAssessmentItem is one completed assessment in a student history.
type StudentAssessmentItem struct {
	AssessmentID string    `json:"assessmentId"`
	Title        string    `json:"title"`
	Score        float64   `json:"score"`
	MaxScore     float64   `json:"maxScore"`
	RiskLevel    string    `json:"riskLevel"`
	CompletedAt  time.Time `json:"completedAt"`
}

// StudentAssessmentsResponse is the per-student assessment history.
type StudentAssessmentsResponse struct {
	StudentID      string                  `json:"studentId"`
	TotalCompleted int                     `json:"totalCompleted"`
	AverageScore   *float64                `json:"avgScore,omitempty"`
	Assessments    []StudentAssessmentItem `json:"assessments"`
}

// StudentActivityItem is one submission in a student activity history.
type StudentActivityItem struct {
	SubmissionID string     `json:"submissionId"`
	AssignmentID string     `json:"assignmentId"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
}

// StatusBreakdown counts submissions per lifecycle status.
type StatusBreakdown struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Verified  int `json:"verified"`
	Rejected  int `json:"rejected"`
}

// StudentActivitiesResponse is the per-student activity history.
type StudentActivitiesResponse struct {
	StudentID       string                `json:"studentId"`
	StatusBreakdown StatusBreakdown       `json:"statusBreakdown"`
	CompletionRate  float64               `json:"completionRate"`
	Activities      []StudentActivityItem `json:"activities"`
}

// StudentWebinarItem is one webinar in a student attendance history.
type StudentWebinarItem struct {
	WebinarID    string    `json:"webinarId"`
	Title        string    `json:"title"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Attended     bool      `json:"attended"`
	WatchMinutes *int      `json:"watchMinutes,omitempty"`
}

// StudentWebinarsResponse is the per-student webinar history.
type StudentWebinarsResponse struct {
	StudentID      string               `json:"studentId"`
	InvitedCount   int                  `json:"invitedCount"`
	AttendedCount  int                  `json:"attendedCount"`
	AttendanceRate float64              `json:"attendanceRate"`
	Webinars       []StudentWebinarItem `json:"webinars"`
}

// StreakDay is one calendar day of streak history.
type StreakDay struct {
	Date              string `json:"date"`
	AppOpened         bool   `json:"appOpened"`
	ActivityCompleted bool   `json:"activityCompleted"`
}

// WeeklyStreak aggregates active days per ISO week.
type WeeklyStreak struct {
	WeekStart  string `json:"weekStart"`
	ActiveDays int    `json:"activeDays"`
}

// StudentStreakResponse is the per-student streak state and history.
type StudentStreakResponse struct {
	StudentID     string         `json:"studentId"`
	CurrentStreak int            `json:"currentStreak"`
	LongestStreak int            `json:"longestStreak"`
	LastActive    *time.Time     `json:"lastActive,omitempty"`
	Days          []StreakDay    `json:"days"`
	Weekly        []WeeklyStreak `json:"weekly"`
}
