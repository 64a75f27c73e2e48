package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nurtura/nurtura/pkg/events"
	"github.com/nurtura/nurtura/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ExportFormat is a supported export encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ParseExportFormat validates a client-supplied format string.
func ParseExportFormat(value string) (ExportFormat, error) {
	switch ExportFormat(value) {
	case ExportFormatCSV, ExportFormatJSON, ExportFormatPDF:
		return ExportFormat(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidExportFormat, value)
	}
}

// ContentType reports the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatJSON:
		return "application/json"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ExportRequest bounds one export query.
type ExportRequest struct {
	AnalyticsRequest

	Format string `validate:"required,oneof=csv json pdf"`
}

// ExportResponse is a rendered analytics document ready to serve.
type ExportResponse struct {
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	Filename    string       `json:"filename"`
	Payload     []byte       `json:"payload"`
}

// ExportAnalytics computes the workflow aggregate and renders it in the
// requested format.
func (s *Analytics) ExportAnalytics(ctx context.Context, req ExportRequest) (*ExportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.export",
		trace.WithAttributes(append(
			otelhelper.WorkflowAttributes(req.WorkflowID, req.TenantID),
			attribute.String(otelhelper.ExportFormatKey, req.Format),
		)...))
	defer span.End()

	format, err := ParseExportFormat(req.Format)
	if err != nil {
		return nil, err
	}

	report, err := s.GetWorkflowAnalytics(ctx, req.AnalyticsRequest)
	if err != nil {
		return nil, err
	}

	var payload []byte

	switch format {
	case ExportFormatCSV:
		payload, err = renderCSV(report)
	case ExportFormatJSON:
		payload, err = json.MarshalIndent(report, "", "  ")
	case ExportFormatPDF:
		payload, err = renderPDF(report)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	s.publish(ctx, req.WorkflowID, events.AnalyticsExported{
		BaseEvent:  events.NewBaseEvent(events.AnalyticsExportedEvent, req.TenantID),
		WorkflowID: req.WorkflowID,
		Format:     string(format),
	})

	filename := fmt.Sprintf("workflow-%s-analytics-%s.%s",
		req.WorkflowID, report.ComputedAt.Format("20060102T150405Z"), format)

	return &ExportResponse{
		Format:      format,
		ContentType: format.ContentType(),
		Filename:    filename,
		Payload:     payload,
	}, nil
}

// renderCSV writes one summary row followed by one row per step. The summary
// row leaves the step columns empty so both live in a single flat document.
func renderCSV(report *AnalyticsResponse) ([]byte, error) {
	var buf bytes.Buffer

	writer := csv.NewWriter(&buf)

	header := []string{
		"workflow_id", "range_start", "range_end",
		"step_id", "position", "entered", "exited", "completed",
		"completion_rate", "conversion_rate", "average_duration_seconds",
	}

	err := writer.Write(header)
	if err != nil {
		return nil, err
	}

	summary := []string{
		report.WorkflowID,
		report.Range.Start.Format("2006-01-02T15:04:05Z07:00"),
		report.Range.End.Format("2006-01-02T15:04:05Z07:00"),
		"", "",
		strconv.FormatInt(report.Enrollments.Total, 10),
		"",
		strconv.FormatInt(report.Completions, 10),
		formatRate(report.Completion),
		formatRate(report.Conversion),
		"",
	}

	err = writer.Write(summary)
	if err != nil {
		return nil, err
	}

	for _, step := range report.Steps {
		row := []string{
			report.WorkflowID,
			report.Range.Start.Format("2006-01-02T15:04:05Z07:00"),
			report.Range.End.Format("2006-01-02T15:04:05Z07:00"),
			step.StepID,
			strconv.Itoa(step.Position),
			strconv.FormatInt(step.Entered, 10),
			strconv.FormatInt(step.Exited, 10),
			strconv.FormatInt(step.Completed, 10),
			formatRate(step.CompletionRate),
			"",
			strconv.FormatFloat(step.AverageDuration.Seconds(), 'f', 3, 64),
		}

		err = writer.Write(row)
		if err != nil {
			return nil, err
		}
	}

	writer.Flush()

	return buf.Bytes(), writer.Error()
}

func formatRate(rate RateMetrics) string {
	return strconv.FormatFloat(rate.Rate.Value(), 'f', 4, 64)
}
