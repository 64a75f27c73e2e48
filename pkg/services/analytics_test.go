package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nurtura/nurtura/pkg/eventbus"
	"github.com/nurtura/nurtura/pkg/events"
	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/persistence"
	"github.com/nurtura/nurtura/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *capturingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	return nil
}

func (b *capturingBus) captured() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]eventbus.Event{}, b.events...)
}

type failingBus struct{}

func (failingBus) Publish(context.Context, string, eventbus.Event) error {
	return errors.New("broker unavailable")
}

var fixtureRange = models.TimeRange{
	Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
}

// seedFixture stores a three-step workflow whose in-range events aggregate
// to entered 100/40/10, with an extra out-of-range enrollment and step event
// that the queries must ignore.
func seedFixture(t *testing.T, store *file.Persistence) {
	t.Helper()

	inRange := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	data := &file.WorkflowData{
		Steps: []models.StepDefinition{
			{StepID: "welcome", Name: "Welcome Email", Position: 1},
			{StepID: "nurture", Name: "Nurture Sequence", Position: 2},
			{StepID: "convert", Name: "Conversion Offer", Position: 3},
		},
	}

	for i := 0; i < 100; i++ {
		source := models.EnrollmentSourceManual
		if i >= 60 {
			source = models.EnrollmentSourceTrigger
		}

		data.Enrollments = append(data.Enrollments, file.EnrollmentEvent{
			ContactID:  "contact",
			Source:     source,
			OccurredAt: inRange,
		})
	}

	data.Enrollments = append(data.Enrollments, file.EnrollmentEvent{
		ContactID:  "stale",
		Source:     models.EnrollmentSourceImport,
		OccurredAt: outOfRange,
	})

	addEvents := func(stepID string, eventType file.StepEventType, count int, reason models.ExitReason, duration time.Duration) {
		for i := 0; i < count; i++ {
			data.StepEvents = append(data.StepEvents, file.StepEvent{
				StepID:     stepID,
				Type:       eventType,
				ExitReason: reason,
				Duration:   duration,
				OccurredAt: inRange,
			})
		}
	}

	addEvents("welcome", file.StepEventEntered, 100, "", 0)
	addEvents("nurture", file.StepEventEntered, 40, "", 0)
	addEvents("convert", file.StepEventEntered, 10, "", 0)

	addEvents("welcome", file.StepEventExited, 60, models.ExitReasonAbandoned, 0)
	addEvents("nurture", file.StepEventExited, 30, models.ExitReasonManualExit, 0)
	addEvents("convert", file.StepEventExited, 2, models.ExitReasonError, 0)

	addEvents("welcome", file.StepEventCompleted, 40, "", 2*time.Minute)
	addEvents("nurture", file.StepEventCompleted, 10, "", 5*time.Minute)
	addEvents("convert", file.StepEventCompleted, 8, "", 10*time.Minute)

	data.StepEvents = append(data.StepEvents, file.StepEvent{
		StepID:     "welcome",
		Type:       file.StepEventEntered,
		OccurredAt: outOfRange,
	})

	require.NoError(t, store.SeedWorkflow(t.Context(), "wf-onboarding", data))
}

func newTestAnalytics(t *testing.T) (*Analytics, *file.Persistence, *capturingBus) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	bus := &capturingBus{}

	return NewAnalytics(store, bus, nil), store, bus
}

func TestGetWorkflowAnalytics(t *testing.T) {
	service, store, bus := newTestAnalytics(t)
	seedFixture(t, store)

	response, err := service.GetWorkflowAnalytics(t.Context(), AnalyticsRequest{
		WorkflowID: "wf-onboarding",
		TenantID:   "acme",
		Start:      &fixtureRange.Start,
		End:        &fixtureRange.End,
	})
	require.NoError(t, err)

	assert.Equal(t, "wf-onboarding", response.WorkflowID)
	assert.Equal(t, int64(100), response.Enrollments.Total)
	assert.Equal(t, map[models.EnrollmentSource]int64{
		models.EnrollmentSourceManual:  60,
		models.EnrollmentSourceTrigger: 40,
	}, response.Enrollments.BySource)
	assert.Equal(t, int64(8), response.Completions)

	assert.InDelta(t, 0.1, response.Conversion.Rate.Value(), 1e-9)
	assert.InDelta(t, 10.0, response.Conversion.Percent, 1e-9)
	assert.InDelta(t, 0.08, response.Completion.Rate.Value(), 1e-9)

	require.Len(t, response.Steps, 3)
	assert.Equal(t, "welcome", response.Steps[0].StepID)
	assert.Equal(t, int64(100), response.Steps[0].Entered)
	assert.Equal(t, int64(60), response.Steps[0].Exited)
	assert.Equal(t, models.ExitBreakdown{models.ExitReasonAbandoned: 60}, response.Steps[0].ExitBreakdown)
	assert.Equal(t, 2*time.Minute, response.Steps[0].AverageDuration)
	assert.InDelta(t, 0.4, response.Steps[0].CompletionRate.Rate.Value(), 1e-9)

	assert.Equal(t, "convert", response.Steps[2].StepID)
	assert.InDelta(t, 0.8, response.Steps[2].CompletionRate.Rate.Value(), 1e-9)

	snapshots, err := store.Snapshots(t.Context(), "wf-onboarding", models.TimeRange{
		Start: response.ComputedAt.Add(-time.Minute),
		End:   response.ComputedAt.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(100), snapshots[0].TotalEnrollments)
	assert.Equal(t, int64(10), snapshots[0].ReachedFinalStep)

	captured := bus.captured()
	require.Len(t, captured, 1)

	computed, ok := captured[0].(events.AnalyticsComputed)
	require.True(t, ok)
	assert.Equal(t, events.AnalyticsComputedEvent, computed.GetType())
	assert.Equal(t, "acme", computed.TenantID)
	assert.Equal(t, int64(100), computed.TotalEnrollments)
}

func TestGetWorkflowAnalyticsSurvivesPublishFailure(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedFixture(t, store)

	service := NewAnalytics(store, failingBus{}, nil)

	// The audit trail being down must not break the query.
	response, err := service.GetWorkflowAnalytics(t.Context(), AnalyticsRequest{
		WorkflowID: "wf-onboarding",
		Start:      &fixtureRange.Start,
		End:        &fixtureRange.End,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), response.Enrollments.Total)
}

func TestGetWorkflowAnalyticsValidation(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	tests := []struct {
		name    string
		request AnalyticsRequest
		want    error
	}{
		{
			name:    "missing workflow id",
			request: AnalyticsRequest{Preset: "today"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "unknown preset",
			request: AnalyticsRequest{WorkflowID: "wf-onboarding", Preset: "yesterday"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "start without end",
			request: AnalyticsRequest{WorkflowID: "wf-onboarding", Start: &fixtureRange.Start},
			want:    ErrMissingRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetWorkflowAnalytics(t.Context(), tt.request)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetWorkflowAnalyticsUnknownWorkflow(t *testing.T) {
	service, _, _ := newTestAnalytics(t)

	_, err := service.GetWorkflowAnalytics(t.Context(), AnalyticsRequest{
		WorkflowID: "wf-missing",
		Preset:     "last_7_days",
	})
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestGetFunnel(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	funnel, err := service.GetFunnel(t.Context(), AnalyticsRequest{
		WorkflowID: "wf-onboarding",
		Start:      &fixtureRange.Start,
		End:        &fixtureRange.End,
	})
	require.NoError(t, err)

	require.Len(t, funnel.Steps, 3)
	assert.Equal(t, int64(60), funnel.Steps[0].DropOff)
	assert.Equal(t, int64(30), funnel.Steps[1].DropOff)
	assert.InDelta(t, 0.1, funnel.Steps[2].CumulativeConversion.Value(), 1e-9)
}

func TestGetTrends(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	days := []time.Time{
		time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 22, 17, 30, 0, 0, time.UTC),
	}

	for _, day := range days {
		day := day
		service.now = func() time.Time { return day }

		_, err := service.GetWorkflowAnalytics(t.Context(), AnalyticsRequest{
			WorkflowID: "wf-onboarding",
			Start:      &fixtureRange.Start,
			End:        &fixtureRange.End,
		})
		require.NoError(t, err)
	}

	start := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	trends, err := service.GetTrends(t.Context(), TrendsRequest{
		AnalyticsRequest: AnalyticsRequest{
			WorkflowID: "wf-onboarding",
			Start:      &start,
			End:        &end,
		},
		Granularity: "daily",
	})
	require.NoError(t, err)

	assert.Equal(t, models.GranularityDaily, trends.Granularity)

	// Dense series from the first to the last snapshot day: the 21st shows
	// up as an empty bucket.
	require.Len(t, trends.Points, 3)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), trends.Points[0].Bucket)
	assert.Equal(t, 1, trends.Points[0].SnapshotCount)
	assert.Equal(t, int64(100), trends.Points[0].Enrollments)
	assert.Equal(t, 0, trends.Points[1].SnapshotCount)
	assert.InDelta(t, 0.1, trends.Points[2].ConversionRate.Value(), 1e-9)
}

func TestGetTrendsRejectsUnknownGranularity(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	_, err := service.GetTrends(t.Context(), TrendsRequest{
		AnalyticsRequest: AnalyticsRequest{WorkflowID: "wf-onboarding", Preset: "today"},
		Granularity:      "monthly",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGetActionPerformance(t *testing.T) {
	service, store, _ := newTestAnalytics(t)
	seedFixture(t, store)

	report, err := service.GetActionPerformance(t.Context(), AnalyticsRequest{
		WorkflowID: "wf-onboarding",
		Start:      &fixtureRange.Start,
		End:        &fixtureRange.End,
	})
	require.NoError(t, err)

	require.Len(t, report.Steps, 3)

	// Ranked by completion rate: convert 0.80, welcome 0.40, nurture 0.25.
	assert.Equal(t, "convert", report.Steps[0].StepID)
	assert.Equal(t, "Conversion Offer", report.Steps[0].Name)
	assert.Equal(t, "welcome", report.Steps[1].StepID)
	assert.Equal(t, "nurture", report.Steps[2].StepID)
}

func TestResolveRangeDefaultsToLast30Days(t *testing.T) {
	service, _, _ := newTestAnalytics(t)

	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	tr, err := service.resolveRange(AnalyticsRequest{WorkflowID: "wf-onboarding"})
	require.NoError(t, err)

	assert.Equal(t, now, tr.End)
	assert.Equal(t, now.AddDate(0, 0, -30), tr.Start)
}
