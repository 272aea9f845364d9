package models

import "time"

// StudentMetrics holds the per-student indicators derived for one run.
// Computed fresh every run; only the fields below are persisted, keyed by
// (date, student_id).
type StudentMetrics struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`

	TotalPagesMemorized float64 `db:"total_pages_memorized" json:"total_pages_memorized"`
	PagesThisWeek       float64 `db:"pages_this_week" json:"pages_this_week"`
	PagesThisMonth      float64 `db:"pages_this_month" json:"pages_this_month"`
	PagesPerDay         float64 `db:"pages_per_day" json:"pages_per_day"`
	PagesPerWeek        float64 `db:"pages_per_week" json:"pages_per_week"`

	ActiveRevisionCount int     `db:"active_revision_count" json:"active_revision_count"`
	RetentionScore      float64 `db:"retention_score" json:"retention_score"`
	AccuracyRate        float64 `db:"accuracy_rate" json:"accuracy_rate"`

	CurrentJuzPercentage      float64 `db:"current_juz_percentage" json:"current_juz_percentage"`
	TotalCompletionPercentage float64 `db:"total_completion_percentage" json:"total_completion_percentage"`

	IsStagnant            bool `db:"is_stagnant" json:"is_stagnant"`
	DaysSinceLastProgress int  `db:"days_since_last_progress" json:"days_since_last_progress"`

	AttendanceRate      float64 `db:"attendance_rate" json:"attendance_rate"`
	LateCount           int     `db:"late_count" json:"late_count"`
	ExcusedAbsences     int     `db:"excused_absences" json:"excused_absences"`
	UnexcusedAbsences   int     `db:"unexcused_absences" json:"unexcused_absences"`
	ConsecutiveAbsences int     `db:"consecutive_absences" json:"consecutive_absences"`

	HomeworkCompletionRate float64 `db:"homework_completion_rate" json:"homework_completion_rate"`
	ConsistencyScore       float64 `db:"consistency_score" json:"consistency_score"`
	TeacherEffortRating    float64 `db:"teacher_effort_rating" json:"teacher_effort_rating"`

	AtRiskScore        float64 `db:"at_risk_score" json:"at_risk_score"`
	BurnoutFlag        bool    `db:"burnout_flag" json:"burnout_flag"`
	DropOffProbability float64 `db:"drop_off_probability" json:"drop_off_probability"`
}

// TeacherMetrics holds the per-teacher indicators, persisted weekly keyed by
// (week_start, teacher_id).
type TeacherMetrics struct {
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`

	AssignedStudentCount int     `db:"assigned_student_count" json:"assigned_student_count"`
	WeeklyActiveHours    float64 `db:"weekly_active_hours" json:"weekly_active_hours"`
	StudentTeacherRatio  float64 `db:"student_teacher_ratio" json:"student_teacher_ratio"`

	SessionsConducted     int     `db:"sessions_conducted" json:"sessions_conducted"`
	SessionsScheduled     int     `db:"sessions_scheduled" json:"sessions_scheduled"`
	SessionCompletionRate float64 `db:"session_completion_rate" json:"session_completion_rate"`

	AvgStudentPace        float64 `db:"avg_student_pace" json:"avg_student_pace"`
	AvgStudentAccuracy    float64 `db:"avg_student_accuracy" json:"avg_student_accuracy"`
	StudentRetentionRate  float64 `db:"student_retention_rate" json:"student_retention_rate"`
	TargetAchievementRate float64 `db:"target_achievement_rate" json:"target_achievement_rate"`
	AtRiskStudentCount    int     `db:"at_risk_student_count" json:"at_risk_student_count"`

	AttendanceRate        float64 `db:"attendance_rate" json:"attendance_rate"`
	MissedOrLateSessions  int     `db:"missed_or_late_sessions" json:"missed_or_late_sessions"`
	CancellationFrequency float64 `db:"cancellation_frequency" json:"cancellation_frequency"`
	GradingTimeliness     float64 `db:"grading_timeliness" json:"grading_timeliness"`

	// Placeholders pending external data sources. AdminEvaluationScore keeps a
	// fixed neutral default; ParentSatisfaction stays null until surveys land.
	AdminEvaluationScore float64  `db:"admin_evaluation_score" json:"admin_evaluation_score"`
	ParentSatisfaction   *float64 `db:"parent_satisfaction" json:"parent_satisfaction,omitempty"`
}

// ClassMetrics holds the per-class indicators, persisted weekly keyed by
// (week_start, class_id).
type ClassMetrics struct {
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`

	AvgProgressPerStudent float64 `db:"avg_progress_per_student" json:"avg_progress_per_student"`
	AttendanceRate        float64 `db:"attendance_rate" json:"attendance_rate"`
	PaceVariance          float64 `db:"pace_variance" json:"pace_variance"`
	CapacityUtilization   float64 `db:"capacity_utilization" json:"capacity_utilization"`
	DropOffRate           float64 `db:"drop_off_rate" json:"drop_off_rate"`
}

// ProgramMetrics is the institution-wide result, computed once per run.
type ProgramMetrics struct {
	OverallVelocity float64 `json:"overall_velocity"`
	StudentsOnTrack int     `json:"students_on_track"`
	StudentsBehind  int     `json:"students_behind"`
	AvgAccuracy     float64 `json:"avg_accuracy"`

	MonthlyRetentionRate float64 `json:"monthly_retention_rate"`
	NewEnrollments       int     `json:"new_enrollments"`
	Withdrawals          int     `json:"withdrawals"`
	NetChange            int     `json:"net_change"`

	AvgStudentLifetimeDays float64 `json:"avg_student_lifetime_days"`
	TeacherTurnoverRate    float64 `json:"teacher_turnover_rate"`
	TeacherUtilizationRate float64 `json:"teacher_utilization_rate"`

	SessionsDelivered   int     `json:"sessions_delivered"`
	SessionsPlanned     int     `json:"sessions_planned"`
	SessionDeliveryRate float64 `json:"session_delivery_rate"`
}

// EssentialMetrics is the reduced 12-field daily program summary kept for fast
// dashboard reads.
type EssentialMetrics struct {
	TotalActiveStudents  int     `db:"total_active_students" json:"total_active_students"`
	TotalActiveTeachers  int     `db:"total_active_teachers" json:"total_active_teachers"`
	TotalPagesMemorized  float64 `db:"total_pages_memorized" json:"total_pages_memorized"`
	AvgPagesPerWeek      float64 `db:"avg_pages_per_week" json:"avg_pages_per_week"`
	AvgAttendanceRate    float64 `db:"avg_attendance_rate" json:"avg_attendance_rate"`
	AvgAccuracy          float64 `db:"avg_accuracy" json:"avg_accuracy"`
	AtRiskStudents       int     `db:"at_risk_students" json:"at_risk_students"`
	StagnantStudents     int     `db:"stagnant_students" json:"stagnant_students"`
	OverallVelocity      float64 `db:"overall_velocity" json:"overall_velocity"`
	MonthlyRetentionRate float64 `db:"monthly_retention_rate" json:"monthly_retention_rate"`
	SessionDeliveryRate  float64 `db:"session_delivery_rate" json:"session_delivery_rate"`
	ActiveAlerts         int     `db:"active_alerts" json:"active_alerts"`
}

// DailySummaryRow is the analytics_summary upsert target, one row per date.
type DailySummaryRow struct {
	Date time.Time `db:"date" json:"date"`
	EssentialMetrics
}

// StudentSummaryRow is the student_metrics_summary upsert target.
type StudentSummaryRow struct {
	Date time.Time `db:"date" json:"date"`
	StudentMetrics
}

// TeacherSummaryRow is the teacher_metrics_summary upsert target.
type TeacherSummaryRow struct {
	WeekStart time.Time `db:"week_start" json:"week_start"`
	TeacherMetrics
}

// ClassSummaryRow is the class_metrics_summary upsert target.
type ClassSummaryRow struct {
	WeekStart time.Time `db:"week_start" json:"week_start"`
	ClassMetrics
}
