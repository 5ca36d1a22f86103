// Package repository implements PostgreSQL persistence for reports and
// their normalized values.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// DB is the subset of pgxpool.Pool the repository uses. Narrowing to an
// interface lets tests substitute a mock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReportRepository persists reports and their values in PostgreSQL.
type ReportRepository struct {
	db  DB
	log *logrus.Logger
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db DB, logger *logrus.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: logger,
	}
}

// SaveReport inserts the report row and all value rows in one transaction.
// A failure on any row rolls back the whole report.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.Report) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	warningsJSON, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("marshaling warnings: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, subject_id, report_type, report_date, quality_score,
			processing_path, warnings, raw_payload, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = tx.Exec(ctx, query,
		report.ID,
		report.SubjectID,
		report.ReportType,
		nullableTime(report.ReportDate),
		report.QualityScore,
		report.Processing,
		warningsJSON,
		report.RawPayload,
		report.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id":  report.ID,
			"subject_id": report.SubjectID,
			"error":      err,
		}).Error("Failed to insert report")
		return fmt.Errorf("inserting report: %w", err)
	}

	valueQuery := `
		INSERT INTO report_values (
			report_id, metric_name, standard_value, standard_unit,
			original_value, original_unit, was_converted, conversion_factor,
			conversion_rule, confidence, validation_status, validation_notes,
			source, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	for _, v := range report.Values {
		_, err = tx.Exec(ctx, valueQuery,
			report.ID,
			v.MetricName,
			v.StandardValue,
			v.StandardUnit,
			v.OriginalValue,
			v.OriginalUnit,
			v.WasConverted,
			v.ConversionFactor,
			v.ConversionRule,
			v.Confidence,
			v.ValidationStatus,
			v.ValidationNotes,
			v.Source,
			v.CreatedAt,
		)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"report_id": report.ID,
				"metric":    v.MetricName,
				"error":     err,
			}).Error("Failed to insert report value")
			return fmt.Errorf("inserting value for %s: %w", v.MetricName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"subject_id": report.SubjectID,
		"values":     len(report.Values),
	}).Info("Report saved")

	return nil
}

// GetReport retrieves one report with all its values.
func (r *ReportRepository) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	query := `
		SELECT id, subject_id, report_type, report_date, quality_score,
			   processing_path, warnings, raw_payload, created_at
		FROM reports
		WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", reportID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"report_id": reportID,
			"error":     err,
		}).Error("Failed to get report")
		return nil, fmt.Errorf("getting report: %w", err)
	}

	values, err := r.fetchReportValues(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report.Values = values

	return report, nil
}

// ListReports returns a subject's reports, newest first, without their
// value rows.
func (r *ReportRepository) ListReports(ctx context.Context, subjectID string, limit, offset int) ([]*domain.Report, error) {
	query := `
		SELECT id, subject_id, report_type, report_date, quality_score,
			   processing_path, warnings, raw_payload, created_at
		FROM reports
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, subjectID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"subject_id": subjectID,
			"error":      err,
		}).Error("Failed to list reports")
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}

	return reports, nil
}

// FetchMetricValues returns every stored value for one subject and metric,
// joined with its report context, oldest first.
func (r *ReportRepository) FetchMetricValues(ctx context.Context, subjectID, metricName string) ([]domain.StoredValue, error) {
	query := `
		SELECT v.report_id, v.metric_name, v.standard_value, v.standard_unit,
			   v.original_value, v.original_unit, v.was_converted,
			   v.conversion_factor, v.conversion_rule, v.confidence,
			   v.validation_status, v.validation_notes, v.source, v.created_at,
			   r.subject_id, r.report_date
		FROM report_values v
		JOIN reports r ON r.id = v.report_id
		WHERE r.subject_id = $1 AND v.metric_name = $2
		ORDER BY r.report_date ASC, v.created_at ASC`

	rows, err := r.db.Query(ctx, query, subjectID, metricName)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"subject_id": subjectID,
			"metric":     metricName,
			"error":      err,
		}).Error("Failed to fetch metric values")
		return nil, fmt.Errorf("fetching metric values: %w", err)
	}
	defer rows.Close()

	var values []domain.StoredValue
	for rows.Next() {
		var sv domain.StoredValue
		var conversionRule, validationNotes *string
		var reportDate *time.Time

		err := rows.Scan(
			&sv.ReportID,
			&sv.MetricName,
			&sv.StandardValue,
			&sv.StandardUnit,
			&sv.OriginalValue,
			&sv.OriginalUnit,
			&sv.WasConverted,
			&sv.ConversionFactor,
			&conversionRule,
			&sv.Confidence,
			&sv.ValidationStatus,
			&validationNotes,
			&sv.Source,
			&sv.CreatedAt,
			&sv.SubjectID,
			&reportDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning value row: %w", err)
		}
		if conversionRule != nil {
			sv.ConversionRule = *conversionRule
		}
		if validationNotes != nil {
			sv.ValidationNotes = *validationNotes
		}
		if reportDate != nil {
			sv.ReportDate = *reportDate
		}
		values = append(values, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value rows: %w", err)
	}

	return values, nil
}

func (r *ReportRepository) fetchReportValues(ctx context.Context, reportID string) ([]domain.ReportValue, error) {
	query := `
		SELECT report_id, metric_name, standard_value, standard_unit,
			   original_value, original_unit, was_converted, conversion_factor,
			   conversion_rule, confidence, validation_status, validation_notes,
			   source, created_at
		FROM report_values
		WHERE report_id = $1
		ORDER BY metric_name ASC`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("fetching report values: %w", err)
	}
	defer rows.Close()

	var values []domain.ReportValue
	for rows.Next() {
		var v domain.ReportValue
		var conversionRule, validationNotes *string

		err := rows.Scan(
			&v.ReportID,
			&v.MetricName,
			&v.StandardValue,
			&v.StandardUnit,
			&v.OriginalValue,
			&v.OriginalUnit,
			&v.WasConverted,
			&v.ConversionFactor,
			&conversionRule,
			&v.Confidence,
			&v.ValidationStatus,
			&validationNotes,
			&v.Source,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning report value: %w", err)
		}
		if conversionRule != nil {
			v.ConversionRule = *conversionRule
		}
		if validationNotes != nil {
			v.ValidationNotes = *validationNotes
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report values: %w", err)
	}

	return values, nil
}

// scanReport scans one reports row from either QueryRow or Query results.
func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	var reportDate *time.Time
	var rawPayload *string
	var warningsJSON []byte

	err := row.Scan(
		&report.ID,
		&report.SubjectID,
		&report.ReportType,
		&reportDate,
		&report.QualityScore,
		&report.Processing,
		&warningsJSON,
		&rawPayload,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reportDate != nil {
		report.ReportDate = *reportDate
	}
	if rawPayload != nil {
		report.RawPayload = *rawPayload
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &report.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshaling warnings: %w", err)
		}
	}

	return &report, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
