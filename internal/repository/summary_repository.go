package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

// SummaryRepository persists and reads the four derived summary tables.
// Every write is an upsert so a rerun for the same key overwrites in place.
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository instantiates the repository.
func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

const upsertDailySummaryQuery = `
INSERT INTO analytics_summary (
	date, total_active_students, total_active_teachers, total_pages_memorized,
	avg_pages_per_week, avg_attendance_rate, avg_accuracy, at_risk_students,
	stagnant_students, overall_velocity, monthly_retention_rate,
	session_delivery_rate, active_alerts
) VALUES (
	:date, :total_active_students, :total_active_teachers, :total_pages_memorized,
	:avg_pages_per_week, :avg_attendance_rate, :avg_accuracy, :at_risk_students,
	:stagnant_students, :overall_velocity, :monthly_retention_rate,
	:session_delivery_rate, :active_alerts
)
ON CONFLICT (date) DO UPDATE SET
	total_active_students = EXCLUDED.total_active_students,
	total_active_teachers = EXCLUDED.total_active_teachers,
	total_pages_memorized = EXCLUDED.total_pages_memorized,
	avg_pages_per_week = EXCLUDED.avg_pages_per_week,
	avg_attendance_rate = EXCLUDED.avg_attendance_rate,
	avg_accuracy = EXCLUDED.avg_accuracy,
	at_risk_students = EXCLUDED.at_risk_students,
	stagnant_students = EXCLUDED.stagnant_students,
	overall_velocity = EXCLUDED.overall_velocity,
	monthly_retention_rate = EXCLUDED.monthly_retention_rate,
	session_delivery_rate = EXCLUDED.session_delivery_rate,
	active_alerts = EXCLUDED.active_alerts`

// UpsertDailySummary writes the one-row-per-date program summary.
func (r *SummaryRepository) UpsertDailySummary(ctx context.Context, row models.DailySummaryRow) error {
	if _, err := r.db.NamedExecContext(ctx, upsertDailySummaryQuery, row); err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

const upsertStudentSummaryQuery = `
INSERT INTO student_metrics_summary (
	date, student_id, student_name, total_pages_memorized, pages_this_week,
	pages_this_month, pages_per_day, pages_per_week, active_revision_count,
	retention_score, accuracy_rate, current_juz_percentage,
	total_completion_percentage, is_stagnant, days_since_last_progress,
	attendance_rate, late_count, excused_absences, unexcused_absences,
	consecutive_absences, homework_completion_rate, consistency_score,
	teacher_effort_rating, at_risk_score, burnout_flag, drop_off_probability
) VALUES (
	:date, :student_id, :student_name, :total_pages_memorized, :pages_this_week,
	:pages_this_month, :pages_per_day, :pages_per_week, :active_revision_count,
	:retention_score, :accuracy_rate, :current_juz_percentage,
	:total_completion_percentage, :is_stagnant, :days_since_last_progress,
	:attendance_rate, :late_count, :excused_absences, :unexcused_absences,
	:consecutive_absences, :homework_completion_rate, :consistency_score,
	:teacher_effort_rating, :at_risk_score, :burnout_flag, :drop_off_probability
)
ON CONFLICT (date, student_id) DO UPDATE SET
	student_name = EXCLUDED.student_name,
	total_pages_memorized = EXCLUDED.total_pages_memorized,
	pages_this_week = EXCLUDED.pages_this_week,
	pages_this_month = EXCLUDED.pages_this_month,
	pages_per_day = EXCLUDED.pages_per_day,
	pages_per_week = EXCLUDED.pages_per_week,
	active_revision_count = EXCLUDED.active_revision_count,
	retention_score = EXCLUDED.retention_score,
	accuracy_rate = EXCLUDED.accuracy_rate,
	current_juz_percentage = EXCLUDED.current_juz_percentage,
	total_completion_percentage = EXCLUDED.total_completion_percentage,
	is_stagnant = EXCLUDED.is_stagnant,
	days_since_last_progress = EXCLUDED.days_since_last_progress,
	attendance_rate = EXCLUDED.attendance_rate,
	late_count = EXCLUDED.late_count,
	excused_absences = EXCLUDED.excused_absences,
	unexcused_absences = EXCLUDED.unexcused_absences,
	consecutive_absences = EXCLUDED.consecutive_absences,
	homework_completion_rate = EXCLUDED.homework_completion_rate,
	consistency_score = EXCLUDED.consistency_score,
	teacher_effort_rating = EXCLUDED.teacher_effort_rating,
	at_risk_score = EXCLUDED.at_risk_score,
	burnout_flag = EXCLUDED.burnout_flag,
	drop_off_probability = EXCLUDED.drop_off_probability`

// UpsertStudentSummaries writes the per-student daily rows.
func (r *SummaryRepository) UpsertStudentSummaries(ctx context.Context, rows []models.StudentSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student summary tx: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertStudentSummaryQuery, row); err != nil {
			return fmt.Errorf("upsert student summary %s: %w", row.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student summaries: %w", err)
	}
	return nil
}

const upsertTeacherSummaryQuery = `
INSERT INTO teacher_metrics_summary (
	week_start, teacher_id, teacher_name, assigned_student_count,
	weekly_active_hours, student_teacher_ratio, sessions_conducted,
	sessions_scheduled, session_completion_rate, avg_student_pace,
	avg_student_accuracy, student_retention_rate, target_achievement_rate,
	at_risk_student_count, attendance_rate, missed_or_late_sessions,
	cancellation_frequency, grading_timeliness, admin_evaluation_score,
	parent_satisfaction
) VALUES (
	:week_start, :teacher_id, :teacher_name, :assigned_student_count,
	:weekly_active_hours, :student_teacher_ratio, :sessions_conducted,
	:sessions_scheduled, :session_completion_rate, :avg_student_pace,
	:avg_student_accuracy, :student_retention_rate, :target_achievement_rate,
	:at_risk_student_count, :attendance_rate, :missed_or_late_sessions,
	:cancellation_frequency, :grading_timeliness, :admin_evaluation_score,
	:parent_satisfaction
)
ON CONFLICT (week_start, teacher_id) DO UPDATE SET
	teacher_name = EXCLUDED.teacher_name,
	assigned_student_count = EXCLUDED.assigned_student_count,
	weekly_active_hours = EXCLUDED.weekly_active_hours,
	student_teacher_ratio = EXCLUDED.student_teacher_ratio,
	sessions_conducted = EXCLUDED.sessions_conducted,
	sessions_scheduled = EXCLUDED.sessions_scheduled,
	session_completion_rate = EXCLUDED.session_completion_rate,
	avg_student_pace = EXCLUDED.avg_student_pace,
	avg_student_accuracy = EXCLUDED.avg_student_accuracy,
	student_retention_rate = EXCLUDED.student_retention_rate,
	target_achievement_rate = EXCLUDED.target_achievement_rate,
	at_risk_student_count = EXCLUDED.at_risk_student_count,
	attendance_rate = EXCLUDED.attendance_rate,
	missed_or_late_sessions = EXCLUDED.missed_or_late_sessions,
	cancellation_frequency = EXCLUDED.cancellation_frequency,
	grading_timeliness = EXCLUDED.grading_timeliness,
	admin_evaluation_score = EXCLUDED.admin_evaluation_score,
	parent_satisfaction = EXCLUDED.parent_satisfaction`

// UpsertTeacherSummaries writes the per-teacher weekly rows.
func (r *SummaryRepository) UpsertTeacherSummaries(ctx context.Context, rows []models.TeacherSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher summary tx: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertTeacherSummaryQuery, row); err != nil {
			return fmt.Errorf("upsert teacher summary %s: %w", row.TeacherID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher summaries: %w", err)
	}
	return nil
}

const upsertClassSummaryQuery = `
INSERT INTO class_metrics_summary (
	week_start, class_id, class_name, avg_progress_per_student,
	attendance_rate, pace_variance, capacity_utilization, drop_off_rate
) VALUES (
	:week_start, :class_id, :class_name, :avg_progress_per_student,
	:attendance_rate, :pace_variance, :capacity_utilization, :drop_off_rate
)
ON CONFLICT (week_start, class_id) DO UPDATE SET
	class_name = EXCLUDED.class_name,
	avg_progress_per_student = EXCLUDED.avg_progress_per_student,
	attendance_rate = EXCLUDED.attendance_rate,
	pace_variance = EXCLUDED.pace_variance,
	capacity_utilization = EXCLUDED.capacity_utilization,
	drop_off_rate = EXCLUDED.drop_off_rate`

// UpsertClassSummaries writes the per-class weekly rows.
func (r *SummaryRepository) UpsertClassSummaries(ctx context.Context, rows []models.ClassSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class summary tx: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertClassSummaryQuery, row); err != nil {
			return fmt.Errorf("upsert class summary %s: %w", row.ClassID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit class summaries: %w", err)
	}
	return nil
}

// GetDailySummary reads the program summary for one date.
func (r *SummaryRepository) GetDailySummary(ctx context.Context, date time.Time) (*models.DailySummaryRow, error) {
	var row models.DailySummaryRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM analytics_summary WHERE date = $1", date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrEntityNotFound, "no summary for date")
		}
		return nil, fmt.Errorf("get daily summary: %w", err)
	}
	return &row, nil
}

// ListStudentSummaries reads the per-student rows for one date, ordered by id.
func (r *SummaryRepository) ListStudentSummaries(ctx context.Context, date time.Time) ([]models.StudentSummaryRow, error) {
	var rows []models.StudentSummaryRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM student_metrics_summary WHERE date = $1 ORDER BY student_id", date)
	if err != nil {
		return nil, fmt.Errorf("list student summaries: %w", err)
	}
	return rows, nil
}

// ListTeacherSummaries reads the per-teacher rows for one week, ordered by id.
func (r *SummaryRepository) ListTeacherSummaries(ctx context.Context, weekStart time.Time) ([]models.TeacherSummaryRow, error) {
	var rows []models.TeacherSummaryRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM teacher_metrics_summary WHERE week_start = $1 ORDER BY teacher_id", weekStart)
	if err != nil {
		return nil, fmt.Errorf("list teacher summaries: %w", err)
	}
	return rows, nil
}

// ListClassSummaries reads the per-class rows for one week, ordered by id.
func (r *SummaryRepository) ListClassSummaries(ctx context.Context, weekStart time.Time) ([]models.ClassSummaryRow, error) {
	var rows []models.ClassSummaryRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM class_metrics_summary WHERE week_start = $1 ORDER BY class_id", weekStart)
	if err != nil {
		return nil, fmt.Errorf("list class summaries: %w", err)
	}
	return rows, nil
}
