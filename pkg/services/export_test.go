package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/nurtura/nurtura/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAnalyticsCSV(t *testing.T) {
	service, store, bus := newTestAnalytics(t)
	seedFixture(t, store)

	export, err := service.ExportAnalytics(t.Context(), ExportRequest{
		AnalyticsRequest: AnalyticsRequest{
			WorkflowID: "wf-onboarding",
			TenantID:   "acme",
			Start:      &fixtureRange.Start,
			End:        &fixtureRange.End,
		},
		Format: "csv",
	})
	require.NoError(t, err)

	assert.Equal(t, ExportFormatCSV, export.Format)
	assert.Equal(t, "text/csv", export.ContentType)
	assert.Contains(t, export.Filename, "workflow-wf-onboarding-analytics-")
	assert.Contains(t, export.Filename, ".csv")

	records, err := csv.NewReader(bytes.NewReader(export.Payload)).ReadAll()
	require.NoError(t, err)

	// Header, summary row, one row per step.
	require.Len(t, records, 5)
	assert.Equal(t, "workflow_id", records[0][0])
	assert.Equal(t, "wf-onboarding", records[1][0])
	assert.Equal(t, "100", records[1][5])
	assert.Equal(t, "0.1000", records[1][9])
	assert.Equal(t, "welcome", records[2][3])
	assert.Equal(t, "0.4000", records[2][8])

	captured := bus.captured()
	require.Len(t, captured, 2) // analytics.computed then analytics.exported

	exported, ok := captured[1].(events.AnalyticsExported)
	require.True(t, ok)
	assert.Equal(t, events.AnalyticsExportedEvent, exported.GetType())
	assert.Equal(t, "csv", exported.Format)
}

func TestExportAnalyticsJSON(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	export, err := service.ExportAnalytics(t.Context(), ExportRequest{
		AnalyticsRequest: AnalyticsRequest{
			WorkflowID: "wf-onboarding",
			Start:      &fixtureRange.Start,
			End:        &fixtureRange.End,
		},
		Format: "json",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", export.ContentType)

	var decoded AnalyticsResponse

	require.NoError(t, json.Unmarshal(export.Payload, &decoded))
	assert.Equal(t, "wf-onboarding", decoded.WorkflowID)
	assert.Equal(t, int64(100), decoded.Enrollments.Total)
	assert.Len(t, decoded.Steps, 3)
	assert.InDelta(t, 0.1, decoded.Conversion.Rate.Value(), 1e-9)
}

func TestExportAnalyticsPDF(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	export, err := service.ExportAnalytics(t.Context(), ExportRequest{
		AnalyticsRequest: AnalyticsRequest{
			WorkflowID: "wf-onboarding",
			Start:      &fixtureRange.Start,
			End:        &fixtureRange.End,
		},
		Format: "pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", export.ContentType)
	assert.True(t, bytes.HasPrefix(export.Payload, []byte("%PDF-1.4")))
	assert.True(t, bytes.HasSuffix(export.Payload, []byte("%%EOF\n")))
	assert.Contains(t, string(export.Payload), "Workflow: wf-onboarding")
}

func TestExportAnalyticsRejectsUnknownFormat(t *testing.T) {
	service, store, bus := newTestAnalytics(t)
	seedFixture(t, store)

	_, err := service.ExportAnalytics(t.Context(), ExportRequest{
		AnalyticsRequest: AnalyticsRequest{WorkflowID: "wf-onboarding", Preset: "today"},
		Format:           "xlsx",
	})
	assert.ErrorIs(t, err, ErrInvalidExportFormat)
	assert.Empty(t, bus.captured())
}
