package service

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/pkg/config"
	"github.com/noah-isme/tahfiz-analytics/pkg/export"
	"github.com/noah-isme/tahfiz-analytics/pkg/storage"
)

// ExportService writes the per-run report artifacts: CSV extracts of the
// summary tables and a one-page PDF overview. Disabled installations skip the
// whole step.
type ExportService struct {
	cfg    config.ReportsConfig
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the exporter.
func NewExportService(cfg config.ReportsConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		cfg:    cfg,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Enabled indicates whether report writing is configured.
func (s *ExportService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.StorageDir != ""
}

// WriteRunArtifacts renders the run's summaries to disk and returns the file
// names written. A disabled exporter is a no-op.
func (s *ExportService) WriteRunArtifacts(result *RunResult) ([]string, error) {
	if !s.Enabled() || result == nil {
		return nil, nil
	}
	store, err := storage.NewReportStore(s.cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	stamp := result.Date.Format("2006-01-02")
	var paths []string

	write := func(name string, payload []byte) error {
		saved, err := store.Save(name, payload)
		if err != nil {
			return err
		}
		paths = append(paths, saved)
		return nil
	}

	summary := s.summaryDataset(result)
	payload, err := s.csv.Render(summary)
	if err != nil {
		return nil, err
	}
	if err := write("analytics_summary_"+stamp+".csv", payload); err != nil {
		return nil, err
	}

	payload, err = s.csv.Render(s.studentDataset(result))
	if err != nil {
		return nil, err
	}
	if err := write("student_metrics_"+stamp+".csv", payload); err != nil {
		return nil, err
	}

	payload, err = s.csv.Render(s.alertDataset(result))
	if err != nil {
		return nil, err
	}
	if err := write("alerts_"+stamp+".csv", payload); err != nil {
		return nil, err
	}

	payload, err = s.pdf.Render(summary, "Daily Analytics Summary "+stamp)
	if err != nil {
		return nil, err
	}
	if err := write("analytics_summary_"+stamp+".pdf", payload); err != nil {
		return nil, err
	}

	s.logger.Info("report artifacts written",
		zap.String("date", stamp),
		zap.Int("files", len(paths)))

	if s.cfg.RetentionDays > 0 {
		removed, err := store.Prune(time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if err != nil {
			s.logger.Warn("report retention pass failed", zap.Error(err))
		} else if len(removed) > 0 {
			s.logger.Info("expired reports removed", zap.Int("count", len(removed)))
		}
	}
	return paths, nil
}

func (s *ExportService) summaryDataset(result *RunResult) export.Dataset {
	e := result.Summary.EssentialMetrics
	return export.Dataset{
		Headers: []string{"metric", "value"},
		Rows: [][]string{
			{"total_active_students", strconv.Itoa(e.TotalActiveStudents)},
			{"total_active_teachers", strconv.Itoa(e.TotalActiveTeachers)},
			{"total_pages_memorized", export.FormatFloat(e.TotalPagesMemorized)},
			{"avg_pages_per_week", export.FormatFloat(e.AvgPagesPerWeek)},
			{"avg_attendance_rate", export.FormatFloat(e.AvgAttendanceRate)},
			{"avg_accuracy", export.FormatFloat(e.AvgAccuracy)},
			{"at_risk_students", strconv.Itoa(e.AtRiskStudents)},
			{"stagnant_students", strconv.Itoa(e.StagnantStudents)},
			{"overall_velocity", export.FormatFloat(e.OverallVelocity)},
			{"monthly_retention_rate", export.FormatFloat(e.MonthlyRetentionRate)},
			{"session_delivery_rate", export.FormatFloat(e.SessionDeliveryRate)},
			{"active_alerts", strconv.Itoa(e.ActiveAlerts)},
		},
	}
}

func (s *ExportService) studentDataset(result *RunResult) export.Dataset {
	data := export.Dataset{
		Headers: []string{
			"student_id", "student_name", "total_pages", "pages_per_week",
			"attendance_rate", "accuracy_rate", "consistency_score",
			"at_risk_score", "drop_off_probability", "is_stagnant",
		},
	}
	for _, sm := range result.StudentMetrics {
		data.Rows = append(data.Rows, []string{
			sm.StudentID,
			sm.StudentName,
			export.FormatFloat(sm.TotalPagesMemorized),
			export.FormatFloat(sm.PagesPerWeek),
			export.FormatFloat(sm.AttendanceRate),
			export.FormatFloat(sm.AccuracyRate),
			export.FormatFloat(sm.ConsistencyScore),
			export.FormatFloat(sm.AtRiskScore),
			export.FormatFloat(sm.DropOffProbability),
			strconv.FormatBool(sm.IsStagnant),
		})
	}
	return data
}

func (s *ExportService) alertDataset(result *RunResult) export.Dataset {
	data := export.Dataset{
		Headers: []string{"type", "severity", "entity_type", "entity_id", "entity_name", "threshold", "current_value", "title"},
	}
	for _, alert := range result.Alerts {
		data.Rows = append(data.Rows, []string{
			string(alert.Type),
			string(alert.Severity),
			alert.EntityType,
			alert.EntityID,
			alert.EntityName,
			export.FormatFloat(alert.Threshold),
			export.FormatFloat(alert.CurrentValue),
			alert.Title,
		})
	}
	return data
}
