package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

// AlertRepository reconciles the generated alert set against the
// analytics_alerts table. Rows an operator acknowledged or resolved are never
// rewritten or removed by the engine.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository instantiates the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const upsertAlertQuery = `
INSERT INTO analytics_alerts (
	id, type, entity_id, entity_type, entity_name, severity, status, title,
	description, threshold, current_value, metadata, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
)
ON CONFLICT (type, entity_id) DO UPDATE SET
	entity_name = EXCLUDED.entity_name,
	severity = EXCLUDED.severity,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	threshold = EXCLUDED.threshold,
	current_value = EXCLUDED.current_value,
	metadata = EXCLUDED.metadata,
	updated_at = EXCLUDED.updated_at
WHERE analytics_alerts.status = 'active'`

const deleteStaleAlertsQuery = `
DELETE FROM analytics_alerts
WHERE status = 'active'
  AND type || ':' || entity_id <> ALL($1)`

// Reconcile upserts every alert in the current set and removes active rows
// whose underlying condition no longer holds. Identity across runs is
// (type, entity_id); the update arm skips acknowledged and resolved rows so
// operator transitions survive, and the delete only ever touches active rows.
func (r *AlertRepository) Reconcile(ctx context.Context, alerts []models.AnalyticsAlert) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin alert tx: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		if alert.ID == "" {
			alert.ID = uuid.NewString()
		}
		metadata := []byte("{}")
		if len(alert.Metadata) > 0 {
			metadata, err = json.Marshal(alert.Metadata)
			if err != nil {
				return fmt.Errorf("marshal alert metadata %s: %w", alert.DedupKey(), err)
			}
		}
		_, err = tx.ExecContext(ctx, upsertAlertQuery,
			alert.ID, alert.Type, alert.EntityID, alert.EntityType,
			alert.EntityName, alert.Severity, alert.Status, alert.Title,
			alert.Description, alert.Threshold, alert.CurrentValue,
			metadata, alert.CreatedAt)
		if err != nil {
			return fmt.Errorf("upsert alert %s: %w", alert.DedupKey(), err)
		}
		keys = append(keys, alert.DedupKey())
	}

	if _, err := tx.ExecContext(ctx, deleteStaleAlertsQuery, pq.StringArray(keys)); err != nil {
		return fmt.Errorf("delete stale alerts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit alert reconciliation: %w", err)
	}
	return nil
}

// ListActive returns active alerts ordered by severity then recency, for the
// summary read surface.
func (r *AlertRepository) ListActive(ctx context.Context) ([]models.AnalyticsAlert, error) {
	type row struct {
		models.AnalyticsAlert
		MetadataJSON []byte    `db:"metadata"`
		UpdatedAt    time.Time `db:"updated_at"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `
SELECT id, type, entity_id, entity_type, entity_name, severity, status, title,
	description, threshold, current_value, metadata, created_at, updated_at
FROM analytics_alerts
WHERE status = 'active'
ORDER BY CASE severity
	WHEN 'critical' THEN 4
	WHEN 'high' THEN 3
	WHEN 'medium' THEN 2
	ELSE 1
END DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	alerts := make([]models.AnalyticsAlert, 0, len(rows))
	for _, rrow := range rows {
		alert := rrow.AnalyticsAlert
		if len(rrow.MetadataJSON) > 0 {
			if err := json.Unmarshal(rrow.MetadataJSON, &alert.Metadata); err != nil {
				return nil, fmt.Errorf("decode alert metadata %s: %w", alert.ID, err)
			}
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
