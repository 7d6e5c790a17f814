package models

import "time"

// AssessmentTemplate holds the reusable question set an assessment is
// instantiated from. Questions is the raw historical JSON payload; use
// service-level normalization before scoring.
type AssessmentTemplate struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Questions   []byte    `db:"questions" json:"-"`
	Active      bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Assessment is a template instance scoped to a school or a single class.
// A nil ClassID means the whole school is targeted.
type Assessment struct {
	ID         string    `db:"id" json:"id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	ClassID    *string   `db:"class_id" json:"class_id,omitempty"`
	Title      string    `db:"title" json:"title"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentResponse is one (student, assessment, question) answer.
type StudentResponse struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	AssessmentID  string    `db:"assessment_id" json:"assessment_id"`
	QuestionID    string    `db:"question_id" json:"question_id"`
	ResponseValue *string   `db:"response_value" json:"response_value,omitempty"`
	Score         float64   `db:"score" json:"score"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// QuestionOption is one selectable answer in canonical form.
type QuestionOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Value *float64 `json:"value,omitempty"`
}

// Question is the canonical shape of one template question after legacy key
// aliases have been normalized.
type Question struct {
	ID      string           `json:"id"`
	Text    string           `json:"text"`
	Type    string           `json:"type"`
	Points  float64          `json:"points"`
	Options []QuestionOption `json:"options,omitempty"`
}

// SubmissionScore is one grouped (student, assessment) submission with its
// summed score, used by the template drill-down.
type SubmissionScore struct {
	StudentID    string    `db:"student_id"`
	FullName     string    `db:"full_name"`
	ClassID      *string   `db:"class_id"`
	ClassName    *string   `db:"class_name"`
	AssessmentID string    `db:"assessment_id"`
	TotalScore   float64   `db:"total_score"`
	CompletedAt  time.Time `db:"completed_at"`
}

// AssessmentStatRow backs the assessment list view: one assessment with its
// participation aggregates.
type AssessmentStatRow struct {
	AssessmentID string    `db:"assessment_id"`
	TemplateID   string    `db:"template_id"`
	Title        string    `db:"title"`
	ClassID      *string   `db:"class_id"`
	ClassName    *string   `db:"class_name"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	Submissions  int       `db:"submissions"`
	AverageScore *float64  `db:"avg_score"`
}

// StudentScore pairs a student with one aggregate score, used for in-class
// ranking.
type StudentScore struct {
	StudentID string  `db:"student_id"`
	Score     float64 `db:"score"`
}

// StudentAssessmentRow is one student's grouped submission carrying the
// template question payload needed to derive the maximum score.
type StudentAssessmentRow struct {
	AssessmentID  string    `db:"assessment_id"`
	TemplateID    string    `db:"template_id"`
	Title         string    `db:"title"`
	Questions     []byte    `db:"questions"`
	TotalScore    float64   `db:"total_score"`
	ResponseCount int       `db:"response_count"`
	CompletedAt   time.Time `db:"completed_at"`
}
