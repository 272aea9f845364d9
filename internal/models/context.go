package models

import "time"

// Entity status and rating vocabulary shared by the raw operational records.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusWithdrawn = "withdrawn"

	RoleTeacher = "teacher"

	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"

	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingAverage   = "average"
	RatingNeedsWork = "needsWork"
	RatingHorrible  = "horrible"

	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

// TimeRange bounds one aggregation window. Both ends are inclusive and UTC.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Days returns the calendar-day span of the window, minimum 1.
func (r TimeRange) Days() int {
	days := int(r.To.Sub(r.From).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Weeks returns the floor-division of the span by seven days, minimum 1.
func (r TimeRange) Weeks() int {
	weeks := r.Days() / 7
	if weeks < 1 {
		return 1
	}
	return weeks
}

// Contains reports whether t falls inside the window.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Student represents a learner registered in the institution.
type Student struct {
	ID              string     `db:"id" json:"id"`
	FullName        string     `db:"full_name" json:"full_name"`
	Status          string     `db:"status" json:"status"`
	EnrollmentDate  time.Time  `db:"enrollment_date" json:"enrollment_date"`
	StatusStartDate *time.Time `db:"status_start_date" json:"status_start_date,omitempty"`
	TeacherID       *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	CurrentJuz      *int       `db:"current_juz" json:"current_juz,omitempty"`
	CompletedJuz    []int      `json:"completed_juz"`
}

// Teacher represents an instructor record.
type Teacher struct {
	ID       string    `db:"id" json:"id"`
	FullName string    `db:"full_name" json:"full_name"`
	Role     string    `db:"role" json:"role"`
	Status   string    `db:"status" json:"status"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// TimeSlot describes one recurring class session window.
type TimeSlot struct {
	Days       []string `json:"days"`
	StartTime  string   `json:"start_time"` // "15:04"
	EndTime    string   `json:"end_time"`
	TeacherIDs []string `json:"teacher_ids"`
}

// Class represents a memorization circle with its roster and schedule.
type Class struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Status          string     `db:"status" json:"status"`
	Capacity        int        `db:"capacity" json:"capacity"`
	CurrentStudents []string   `json:"current_students"`
	TeacherIDs      []string   `json:"teacher_ids"`
	TimeSlots       []TimeSlot `json:"time_slots"`
}

// ProgressEntry records one memorization session's output for a student.
type ProgressEntry struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	TeacherID      *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Date           time.Time `db:"date" json:"date"`
	PagesMemorized float64   `db:"pages_memorized" json:"pages_memorized"`
	MistakeCount   *int      `db:"mistake_count" json:"mistake_count,omitempty"`
	Rating         string    `db:"rating" json:"rating"`
	Category       string    `db:"category" json:"category"` // sabaq, sabaqPara, dhor
}

// AttendanceRecord captures one attendance mark.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	Date      time.Time `db:"date" json:"date"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
}

// Assignment is homework assigned to a student.
type Assignment struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
	DueDate    *time.Time `db:"due_date" json:"due_date,omitempty"`
}

// Submission records a student's response to an assignment.
type Submission struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignment_id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Status       string     `db:"status" json:"status"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	GradedAt     *time.Time `db:"graded_at" json:"graded_at,omitempty"`
}

// JuzRevision is one revision session over a previously memorized Juz.
type JuzRevision struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	JuzNumber int       `db:"juz_number" json:"juz_number"`
	Date      time.Time `db:"date" json:"date"`
	Rating    string    `db:"rating" json:"rating"`
}

// SabaqPara is one recent-review session over a Para.
type SabaqPara struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ParaNumber   int       `db:"para_number" json:"para_number"`
	Date         time.Time `db:"date" json:"date"`
	PagesRevised float64   `db:"pages_revised" json:"pages_revised"`
}

// AnalyticsDataContext is the read-only snapshot loaded once per aggregation
// run. Every calculator observes the same collections; nothing mutates them.
type AnalyticsDataContext struct {
	Students     []Student
	Teachers     []Teacher
	Classes      []Class
	Progress     []ProgressEntry
	Attendance   []AttendanceRecord
	Assignments  []Assignment
	Submissions  []Submission
	JuzRevisions []JuzRevision
	SabaqPara    []SabaqPara
}

// StudentByID resolves a student from the snapshot.
func (c *AnalyticsDataContext) StudentByID(id string) (*Student, bool) {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return &c.Students[i], true
		}
	}
	return nil, false
}

// TeacherByID resolves a teacher from the snapshot.
func (c *AnalyticsDataContext) TeacherByID(id string) (*Teacher, bool) {
	for i := range c.Teachers {
		if c.Teachers[i].ID == id {
			return &c.Teachers[i], true
		}
	}
	return nil, false
}

// ClassByID resolves a class from the snapshot.
func (c *AnalyticsDataContext) ClassByID(id string) (*Class, bool) {
	for i := range c.Classes {
		if c.Classes[i].ID == id {
			return &c.Classes[i], true
		}
	}
	return nil, false
}

// ActiveStudents returns the students with active status.
func (c *AnalyticsDataContext) ActiveStudents() []Student {
	active := make([]Student, 0, len(c.Students))
	for _, s := range c.Students {
		if s.Status == StatusActive {
			active = append(active, s)
		}
	}
	return active
}

// ActiveTeachers returns records with the teacher role that are active.
func (c *AnalyticsDataContext) ActiveTeachers() []Teacher {
	active := make([]Teacher, 0, len(c.Teachers))
	for _, t := range c.Teachers {
		if t.Role == RoleTeacher && t.Status == StatusActive {
			active = append(active, t)
		}
	}
	return active
}

// ActiveClasses returns classes with active status.
func (c *AnalyticsDataContext) ActiveClasses() []Class {
	active := make([]Class, 0, len(c.Classes))
	for _, cl := range c.Classes {
		if cl.Status == StatusActive {
			active = append(active, cl)
		}
	}
	return active
}
