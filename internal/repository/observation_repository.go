package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpulse/insights-api/internal/models"
)

// ObservationRepository reads the qualitative records merged into student
// profiles.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository constructs an ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// RecentObservations lists the newest counsellor notes for a student.
func (r *ObservationRepository) RecentObservations(ctx context.Context, studentID string, limit int) ([]models.Observation, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, student_id, note, author_name, created_at
        FROM student_observations
        WHERE student_id = $1
        ORDER BY created_at DESC
        LIMIT $2`
	var notes []models.Observation
	if err := r.db.SelectContext(ctx, &notes, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return notes, nil
}

// RecentAlerts lists risk alerts raised since the cutoff, newest first.
func (r *ObservationRepository) RecentAlerts(ctx context.Context, studentID string, since time.Time) ([]models.RiskAlert, error) {
	const query = `SELECT id, student_id, alert_type, severity, message, created_at
        FROM student_risk_alerts
        WHERE student_id = $1 AND created_at >= $2
        ORDER BY created_at DESC`
	var alerts []models.RiskAlert
	if err := r.db.SelectContext(ctx, &alerts, query, studentID, since); err != nil {
		return nil, fmt.Errorf("list risk alerts: %w", err)
	}
	return alerts, nil
}
