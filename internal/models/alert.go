package models

import "time"

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertMissedSessions       AlertType = "missed_sessions_threshold"
	AlertPaceDrop             AlertType = "memorization_pace_drop"
	AlertAtRiskConcentration  AlertType = "high_at_risk_concentration"
	AlertClassOvercapacity    AlertType = "class_overcapacity"
	AlertTeacherCancellations AlertType = "excessive_teacher_cancellations"
)

// AlertSeverity orders alerts for presentation.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Rank maps severity onto a sortable weight, critical highest.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AlertStatus tracks the operator-facing lifecycle. Only "active" rows are
// ever touched by the engine; acknowledged and resolved transitions happen
// outside it and must survive reconciliation.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// AnalyticsAlert is one actionable condition produced by a rule generator.
type AnalyticsAlert struct {
	ID           string            `db:"id" json:"id"`
	Type         AlertType         `db:"type" json:"type"`
	Severity     AlertSeverity     `db:"severity" json:"severity"`
	Status       AlertStatus       `db:"status" json:"status"`
	EntityID     string            `db:"entity_id" json:"entity_id"`
	EntityType   string            `db:"entity_type" json:"entity_type"`
	EntityName   string            `db:"entity_name" json:"entity_name"`
	Title        string            `db:"title" json:"title"`
	Description  string            `db:"description" json:"description"`
	Threshold    float64           `db:"threshold" json:"threshold"`
	CurrentValue float64           `db:"current_value" json:"current_value"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	Metadata     map[string]string `db:"-" json:"metadata,omitempty"`
}

// DedupKey is the cross-run identity of the underlying condition. The same
// condition recurring in a later run reconciles onto the same stored row.
func (a AnalyticsAlert) DedupKey() string {
	return string(a.Type) + ":" + a.EntityID
}
