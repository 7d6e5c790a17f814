package dto

import (
	"time"

	"github.com/schoolpulse/insights-api/internal/models"
)

// AssessmentListItem is one assessment row with its submission stats.
// A nil classId means the assessment is school-wide.
type AssessmentListItem struct {
	AssessmentID   string    `json:"assessmentId"`
	TemplateID     string    `json:"templateId"`
	Title          string    `json:"title"`
	ClassID        *string   `json:"classId,omitempty"`
	ClassName      *string   `json:"className,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	Completed      int       `json:"completed"`
	Invited        int       `json:"invited"`
	CompletionRate float64   `json:"completionRate"`
	AverageScore   *float64  `json:"avgScore,omitempty"`
}

// AssessmentListResponse wraps the per-assessment stats.
type AssessmentListResponse struct {
	SchoolID    string               `json:"schoolId"`
	Assessments []AssessmentListItem `json:"assessments"`
}

// ScoreBucket is one decile of the score distribution histogram.
type ScoreBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassAssessmentStat is one class slice of a template report.
type ClassAssessmentStat struct {
	ClassID      string   `json:"classId"`
	ClassName    string   `json:"className"`
	Students     int      `json:"students"`
	Completed    int      `json:"completed"`
	AverageScore *float64 `json:"avgScore,omitempty"`
	PassRate     float64  `json:"passRate"`
}

// AssessmentStudentRow is one scored submission in a template report.
type AssessmentStudentRow struct {
	StudentID   string    `json:"studentId"`
	FullName    string    `json:"fullName"`
	ClassName   *string   `json:"className,omitempty"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"maxScore"`
	Percent     float64   `json:"percent"`
	RiskLevel   string    `json:"riskLevel"`
	CompletedAt time.Time `json:"completedAt"`
}

// AssessmentDetailResponse is the full report for one template.
type AssessmentDetailResponse struct {
	TemplateID    string                 `json:"templateId"`
	Title         string                 `json:"title"`
	Description   *string                `json:"description,omitempty"`
	QuestionCount int                    `json:"questionCount"`
	MaxScore      float64                `json:"maxScore"`
	Questions     []models.Question      `json:"questions"`
	Submissions   int                    `json:"submissions"`
	AverageScore  *float64               `json:"avgScore,omitempty"`
	PassRate      float64                `json:"passRate"`
	Distribution  []ScoreBucket          `json:"distribution"`
	ClassStats    []ClassAssessmentStat  `json:"classStats"`
	Students      []AssessmentStudentRow `json:"students"`
}

// QuestionResponse is one answered question of a student submission.
type QuestionResponse struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question"`
	Answer     *string `json:"answer,omitempty"`
	AnswerText *string `json:"answerText,omitempty"`
	Score      float64 `json:"score"`
	Points     float64 `json:"points"`
}

// StudentResponsesResponse is one student's graded submission for a template.
type StudentResponsesResponse struct {
	TemplateID string             `json:"templateId"`
	StudentID  string             `json:"studentId"`
	TotalScore float64            `json:"totalScore"`
	MaxScore   float64            `json:"maxScore"`
	Percent    float64            `json:"percent"`
	Responses  []QuestionResponse `json:"responses"`
}

// ActivityListItem is one assignment row with its submission stats.
type ActivityListItem struct {
	AssignmentID   string     `json:"assignmentId"`
	Title          string     `json:"title"`
	ClassID        string     `json:"classId"`
	ClassName      *string    `json:"className,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	Submitted      int        `json:"submitted"`
	Verified       int        `json:"verified"`
	Pending        int        `json:"pending"`
	Rejected       int        `json:"rejected"`
	Completed      int        `json:"completed"`
	Invited        int        `json:"invited"`
	CompletionRate float64    `json:"completionRate"`
}

// ActivityListResponse wraps the per-assignment stats.
type ActivityListResponse struct {
	SchoolID   string             `json:"schoolId"`
	Activities []ActivityListItem `json:"activities"`
}

// ActivityCompletionRow is one student's completion state for an assignment.
// Roster students without a submission appear with status "pending".
type ActivityCompletionRow struct {
	StudentID   string     `json:"studentId"`
	FullName    string     `json:"fullName"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// ActivityDetailResponse is the drill-down for one assignment: the assigned
// roster reconciled with every recorded submission.
type ActivityDetailResponse struct {
	AssignmentID   string                  `json:"assignmentId"`
	Title          string                  `json:"title"`
	Description    *string                 `json:"description,omitempty"`
	ClassID        string                  `json:"classId"`
	ClassName      *string                 `json:"className,omitempty"`
	DueDate        *time.Time              `json:"dueDate,omitempty"`
	TotalAssigned  int                     `json:"totalAssigned"`
	Completed      int                     `json:"completed"`
	Pending        int                     `json:"pending"`
	CompletionRate float64                 `json:"completionRate"`
	Completions    []ActivityCompletionRow `json:"completions"`
}

// WebinarListItem is one webinar row with reconciled attendance stats.
type WebinarListItem struct {
	WebinarID      string    `json:"webinarId"`
	Title          string    `json:"title"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	SchoolWide     bool      `json:"schoolWide"`
	Invited        int       `json:"invited"`
	Attended       int       `json:"attended"`
	AttendanceRate float64   `json:"attendanceRate"`
}

// WebinarListResponse wraps the per-webinar stats.
type WebinarListResponse struct {
	SchoolID string            `json:"schoolId"`
	Webinars []WebinarListItem `json:"webinars"`
}

// WebinarAttendeeRow is one invited student's attendance state for a webinar.
type WebinarAttendeeRow struct {
	StudentID    string  `json:"studentId"`
	FullName     string  `json:"fullName"`
	RollNumber   *string `json:"rollNumber,omitempty"`
	ClassID      *string `json:"classId,omitempty"`
	ClassName    *string `json:"className,omitempty"`
	Status       string  `json:"status"`
	Attended     bool    `json:"attended"`
	WatchMinutes *int    `json:"watchMinutes,omitempty"`
	WatchPercent float64 `json:"watchPercent"`
}

// ClassWebinarStat is one class slice of a webinar's attendance.
type ClassWebinarStat struct {
	ClassName       string  `json:"className"`
	Attended        int     `json:"attended"`
	Total           int     `json:"total"`
	AvgWatchMinutes float64 `json:"avgWatchMinutes"`
}

// WebinarDetailResponse is the drill-down for one webinar: the invited set
// (registration scope unioned with recorded attendees) with per-student and
// per-class attendance.
type WebinarDetailResponse struct {
	WebinarID       string               `json:"webinarId"`
	Title           string               `json:"title"`
	Description     *string              `json:"description,omitempty"`
	ScheduledAt     time.Time            `json:"scheduledAt"`
	DurationMinutes *int                 `json:"durationMinutes,omitempty"`
	SchoolWide      bool                 `json:"schoolWide"`
	Invited         int                  `json:"invited"`
	Attended        int                  `json:"attended"`
	Absent          int                  `json:"absent"`
	AttendanceRate  float64              `json:"attendanceRate"`
	AvgWatchPercent float64              `json:"avgWatchPercent"`
	Attendance      []WebinarAttendeeRow `json:"attendance"`
	ClassStats      []ClassWebinarStat   `json:"classStats"`
}
