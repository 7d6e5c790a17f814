package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/pkg/export"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportReport selects which analytics table is rendered.
type ExportReport string

const (
	ExportReportOverview ExportReport = "overview"
	ExportReportClasses  ExportReport = "classes"
	ExportReportStudents ExportReport = "students"
)

// exportPageSize is the roster page size used while draining the student list.
const exportPageSize = 100

// ExportConfig bounds export output.
type ExportConfig struct {
	MaxRows int
}

type overviewProvider interface {
	Overview(ctx context.Context, schoolID string, windowDays int) (*dto.OverviewResponse, bool, error)
}

type classListProvider interface {
	ClassList(ctx context.Context, schoolID, teacherID string) (*dto.ClassListResponse, bool, error)
}

type studentListProvider interface {
	ListStudents(ctx context.Context, params StudentListParams) (*dto.StudentListResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries the rendered bytes with their download metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders analytics tables to CSV or PDF in memory. Datasets
// are built from the same services that back the JSON endpoints so exported
// numbers always match what the dashboard shows.
type ExportService struct {
	overview overviewProvider
	classes  classListProvider
	students studentListProvider
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(overview overviewProvider, classes classListProvider, students studentListProvider, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{
		overview: overview,
		classes:  classes,
		students: students,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate builds the requested table and renders it in the requested format.
func (s *ExportService) Generate(ctx context.Context, schoolID, rawReport, rawFormat string) (*ExportResult, error) {
	report := ExportReport(strings.ToLower(strings.TrimSpace(rawReport)))
	format := ExportFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	switch format {
	case ExportFormatCSV, ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidFilter, fmt.Sprintf("unknown export format %q", rawFormat))
	}

	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch report {
	case ExportReportOverview:
		dataset, title, err = s.buildOverviewDataset(ctx, schoolID)
	case ExportReportClasses:
		dataset, title, err = s.buildClassDataset(ctx, schoolID)
	case ExportReportStudents:
		dataset, title, err = s.buildStudentDataset(ctx, schoolID)
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidFilter, fmt.Sprintf("unknown export report %q", rawReport))
	}
	if err != nil {
		return nil, err
	}

	var payload []byte
	contentType := "text/csv"
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	timestamp := s.now().UTC().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.%s", report, sanitizeFilename(schoolID), timestamp, format)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) buildOverviewDataset(ctx context.Context, schoolID string) (export.Dataset, string, error) {
	resp, _, err := s.overview.Overview(ctx, schoolID, 0)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := []map[string]string{
		{"Metric": "Total Students", "Value": strconv.Itoa(resp.TotalStudents)},
		{"Metric": "Total Classes", "Value": strconv.Itoa(resp.TotalClasses)},
		{"Metric": "Average Wellbeing Score", "Value": formatOptionalRate(resp.AverageWellbeing)},
		{"Metric": "Average Streak (days)", "Value": formatRate(resp.AverageStreak)},
		{"Metric": "App Sessions", "Value": strconv.Itoa(resp.TotalSessions)},
		{"Metric": "Risk Low", "Value": strconv.Itoa(resp.RiskDistribution.Low)},
		{"Metric": "Risk Medium", "Value": strconv.Itoa(resp.RiskDistribution.Medium)},
		{"Metric": "Risk High", "Value": strconv.Itoa(resp.RiskDistribution.High)},
		{"Metric": "Assessments Completed", "Value": formatFamily(resp.Assessments)},
		{"Metric": "Activities Completed", "Value": formatFamily(resp.Activities)},
		{"Metric": "Webinars Attended", "Value": formatFamily(resp.Webinars)},
	}
	dataset := export.Dataset{Headers: []string{"Metric", "Value"}, Rows: rows}
	title := fmt.Sprintf("Engagement Overview (last %d days)", resp.WindowDays)
	return dataset, title, nil
}

func (s *ExportService) buildClassDataset(ctx context.Context, schoolID string) (export.Dataset, string, error) {
	resp, _, err := s.classes.ClassList(ctx, schoolID, "")
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(resp.Classes))
	for _, class := range resp.Classes {
		grade := ""
		if class.Grade != nil {
			grade = *class.Grade
		}
		rows = append(rows, map[string]string{
			"Class":         class.Name,
			"Grade":         grade,
			"Students":      strconv.Itoa(class.StudentCount),
			"Assessments %": formatRate(class.Assessments.Rate),
			"Activities %":  formatRate(class.Activities.Rate),
			"Attendance %":  formatRate(class.Webinars.Rate),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Class", "Grade", "Students", "Assessments %", "Activities %", "Attendance %"},
		Rows:    rows,
	}
	return dataset, "Class Engagement Report", nil
}

func (s *ExportService) buildStudentDataset(ctx context.Context, schoolID string) (export.Dataset, string, error) {
	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		resp, err := s.students.ListStudents(ctx, StudentListParams{
			SchoolID: schoolID,
			Page:     page,
			Limit:    exportPageSize,
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, st := range resp.Students {
			className := ""
			if st.ClassName != nil {
				className = *st.ClassName
			}
			rows = append(rows, map[string]string{
				"Student":     st.FullName,
				"Class":       className,
				"Risk":        st.RiskLevel,
				"Assessments": strconv.Itoa(st.CompletedAssessments),
				"Activities":  strconv.Itoa(st.CompletedActivities),
				"Webinars":    strconv.Itoa(st.AttendedWebinars),
				"Streak":      strconv.Itoa(st.CurrentStreak),
				"Last Active": formatReportTime(st.LastActive),
			})
		}
		if len(rows) >= s.cfg.MaxRows {
			s.logger.Warn("student export truncated", zap.Int("max_rows", s.cfg.MaxRows))
			rows = rows[:s.cfg.MaxRows]
			break
		}
		if len(resp.Students) < exportPageSize || len(rows) >= resp.Pagination.TotalCount {
			break
		}
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Class", "Risk", "Assessments", "Activities", "Webinars", "Streak", "Last Active"},
		Rows:    rows,
	}
	return dataset, "Student Engagement Report", nil
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatOptionalRate(v *float64) string {
	if v == nil {
		return ""
	}
	return formatRate(*v)
}

func formatFamily(fc dto.FamilyCompletion) string {
	return fmt.Sprintf("%d/%d (%s%%)", fc.Done, fc.Total, formatRate(fc.Rate))
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
