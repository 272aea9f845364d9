package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

// ContextRepository loads the full analytics snapshot in one pass. It is the
// only component that reads the raw operational tables; everything downstream
// consumes the returned context.
type ContextRepository struct {
	db *sqlx.DB
}

// NewContextRepository instantiates the repository.
func NewContextRepository(db *sqlx.DB) *ContextRepository {
	return &ContextRepository{db: db}
}

// Load fetches every collection the calculators need. Entity tables are
// loaded whole (scoped to the institution when set); record tables are
// bounded by the window.
func (r *ContextRepository) Load(ctx context.Context, window models.TimeRange, institutionScope string) (*models.AnalyticsDataContext, error) {
	data := &models.AnalyticsDataContext{}

	var err error
	if data.Students, err = r.loadStudents(ctx, institutionScope); err != nil {
		return nil, err
	}
	if data.Teachers, err = r.loadTeachers(ctx, institutionScope); err != nil {
		return nil, err
	}
	if data.Classes, err = r.loadClasses(ctx, institutionScope); err != nil {
		return nil, err
	}
	if data.Progress, err = r.loadProgress(ctx, window, institutionScope); err != nil {
		return nil, err
	}
	if data.Attendance, err = r.loadAttendance(ctx, window, institutionScope); err != nil {
		return nil, err
	}
	if data.Assignments, err = r.loadAssignments(ctx, window, institutionScope); err != nil {
		return nil, err
	}
	if data.Submissions, err = r.loadSubmissions(ctx, window, institutionScope); err != nil {
		return nil, err
	}
	if data.JuzRevisions, err = r.loadJuzRevisions(ctx, window, institutionScope); err != nil {
		return nil, err
	}
	if data.SabaqPara, err = r.loadSabaqPara(ctx, window, institutionScope); err != nil {
		return nil, err
	}

	return data, nil
}

func (r *ContextRepository) loadStudents(ctx context.Context, scope string) ([]models.Student, error) {
	type row struct {
		models.Student
		CompletedJuz pq.Int64Array `db:"completed_juz"`
	}
	var builder strings.Builder
	builder.WriteString("SELECT id, full_name, status, enrollment_date, status_start_date, teacher_id, current_juz, completed_juz FROM students WHERE 1=1")
	var args []interface{}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND institution_id = $%d", len(args)))
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	students := make([]models.Student, 0, len(rows))
	for _, rrow := range rows {
		student := rrow.Student
		student.CompletedJuz = make([]int, 0, len(rrow.CompletedJuz))
		for _, j := range rrow.CompletedJuz {
			student.CompletedJuz = append(student.CompletedJuz, int(j))
		}
		students = append(students, student)
	}
	return students, nil
}

func (r *ContextRepository) loadTeachers(ctx context.Context, scope string) ([]models.Teacher, error) {
	var builder strings.Builder
	builder.WriteString("SELECT id, full_name, role, status, joined_at FROM teachers WHERE 1=1")
	var args []interface{}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND institution_id = $%d", len(args)))
	}
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query teachers: %w", err)
	}
	return teachers, nil
}

func (r *ContextRepository) loadClasses(ctx context.Context, scope string) ([]models.Class, error) {
	type row struct {
		ID              string         `db:"id"`
		Name            string         `db:"name"`
		Status          string         `db:"status"`
		Capacity        int            `db:"capacity"`
		CurrentStudents pq.StringArray `db:"current_students"`
		TeacherIDs      pq.StringArray `db:"teacher_ids"`
		TimeSlotsJSON   []byte         `db:"time_slots"`
	}
	var builder strings.Builder
	builder.WriteString("SELECT id, name, status, capacity, current_students, teacher_ids, time_slots FROM classes WHERE 1=1")
	var args []interface{}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND institution_id = $%d", len(args)))
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	classes := make([]models.Class, 0, len(rows))
	for _, rrow := range rows {
		class := models.Class{
			ID:              rrow.ID,
			Name:            rrow.Name,
			Status:          rrow.Status,
			Capacity:        rrow.Capacity,
			CurrentStudents: rrow.CurrentStudents,
			TeacherIDs:      rrow.TeacherIDs,
		}
		if len(rrow.TimeSlotsJSON) > 0 {
			if err := json.Unmarshal(rrow.TimeSlotsJSON, &class.TimeSlots); err != nil {
				return nil, fmt.Errorf("decode time slots for class %s: %w", rrow.ID, err)
			}
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func (r *ContextRepository) loadProgress(ctx context.Context, window models.TimeRange, scope string) ([]models.ProgressEntry, error) {
	query, args := windowedQuery(
		"SELECT id, student_id, teacher_id, date, pages_memorized, mistake_count, rating, category FROM progress_entries",
		window, scope)
	var entries []models.ProgressEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("query progress entries: %w", err)
	}
	return entries, nil
}

func (r *ContextRepository) loadAttendance(ctx context.Context, window models.TimeRange, scope string) ([]models.AttendanceRecord, error) {
	query, args := windowedQuery(
		"SELECT id, student_id, teacher_id, class_id, date, status, notes FROM attendance_records",
		window, scope)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	return records, nil
}

func (r *ContextRepository) loadAssignments(ctx context.Context, window models.TimeRange, scope string) ([]models.Assignment, error) {
	var builder strings.Builder
	builder.WriteString("SELECT id, student_id, assigned_at, due_date FROM assignments WHERE assigned_at >= $1 AND assigned_at <= $2")
	args := []interface{}{window.From, window.To}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND institution_id = $%d", len(args)))
	}
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	return assignments, nil
}

func (r *ContextRepository) loadSubmissions(ctx context.Context, window models.TimeRange, scope string) ([]models.Submission, error) {
	var builder strings.Builder
	builder.WriteString("SELECT s.id, s.assignment_id, s.student_id, s.status, s.submitted_at, s.graded_at FROM submissions s JOIN assignments a ON a.id = s.assignment_id WHERE a.assigned_at >= $1 AND a.assigned_at <= $2")
	args := []interface{}{window.From, window.To}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND a.institution_id = $%d", len(args)))
	}
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	return submissions, nil
}

func (r *ContextRepository) loadJuzRevisions(ctx context.Context, window models.TimeRange, scope string) ([]models.JuzRevision, error) {
	query, args := windowedQuery(
		"SELECT id, student_id, juz_number, date, rating FROM juz_revisions",
		window, scope)
	var revisions []models.JuzRevision
	if err := r.db.SelectContext(ctx, &revisions, query, args...); err != nil {
		return nil, fmt.Errorf("query juz revisions: %w", err)
	}
	return revisions, nil
}

func (r *ContextRepository) loadSabaqPara(ctx context.Context, window models.TimeRange, scope string) ([]models.SabaqPara, error) {
	query, args := windowedQuery(
		"SELECT id, student_id, para_number, date, pages_revised FROM sabaq_para_records",
		window, scope)
	var records []models.SabaqPara
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query sabaq para records: %w", err)
	}
	return records, nil
}

func windowedQuery(base string, window models.TimeRange, scope string) (string, []interface{}) {
	var builder strings.Builder
	builder.WriteString(base)
	builder.WriteString(" WHERE date >= $1 AND date <= $2")
	args := []interface{}{window.From, window.To}
	if scope != "" {
		args = append(args, scope)
		builder.WriteString(fmt.Sprintf(" AND institution_id = $%d", len(args)))
	}
	return builder.String(), args
}
