package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nurtura/nurtura/pkg/analytics"
	"github.com/nurtura/nurtura/pkg/eventbus"
	"github.com/nurtura/nurtura/pkg/events"
	"github.com/nurtura/nurtura/pkg/log"
	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/otelhelper"
	"github.com/nurtura/nurtura/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Analytics is the orchestrating use-case layer over the pure computation
// services. It owns range resolution, snapshotting and audit publication;
// all metric math lives in pkg/analytics.
type Analytics struct {
	persistence persistence.Persistence
	calculator  *analytics.Calculator
	funnel      *analytics.Funnel
	aggregator  *analytics.Aggregator
	eventBus    eventbus.EventPublisher
	validate    *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// NewAnalytics creates the analytics use-case service. A nil tracer disables
// tracing; a nil event bus disables the audit trail.
func NewAnalytics(p persistence.Persistence, bus eventbus.EventPublisher, tracer trace.Tracer) *Analytics {
	conversion := analytics.NewConversion()

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("nurtura")
	}

	return &Analytics{
		persistence: p,
		calculator:  analytics.NewCalculator(conversion),
		funnel:      analytics.NewFunnel(conversion),
		aggregator:  analytics.NewAggregator(conversion),
		eventBus:    bus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:      tracer,
		logger:      log.WithModule("services"),
		now:         time.Now,
	}
}

// AnalyticsRequest bounds one analytics query. Either Preset or both Start
// and End must be set; when neither is, the last 30 days are assumed.
type AnalyticsRequest struct {
	WorkflowID string `validate:"required"`
	TenantID   string
	Preset     string `validate:"omitempty,oneof=today last_7_days last_30_days last_90_days"`
	Start      *time.Time
	End        *time.Time
}

// EnrollmentMetrics summarizes how participants entered.
type EnrollmentMetrics struct {
	Total    int64                             `json:"total"`
	BySource map[models.EnrollmentSource]int64 `json:"by_source,omitempty"`
}

// RateMetrics carries one computed rate in both representations. The
// fraction is canonical; the percent exists for presentation only.
type RateMetrics struct {
	Rate    models.Rate `json:"rate"`
	Percent float64     `json:"percent"`
}

func newRateMetrics(rate models.Rate) RateMetrics {
	return RateMetrics{Rate: rate, Percent: rate.Percent()}
}

// StepBreakdown is the per-step slice of an analytics response.
type StepBreakdown struct {
	StepID          string               `json:"step_id"`
	Position        int                  `json:"position"`
	Entered         int64                `json:"entered"`
	Exited          int64                `json:"exited"`
	Completed       int64                `json:"completed"`
	AverageDuration time.Duration        `json:"average_duration"`
	CompletionRate  RateMetrics          `json:"completion_rate"`
	ExitBreakdown   models.ExitBreakdown `json:"exit_breakdown,omitempty"`
}

// AnalyticsResponse is the full analytics query result for one workflow.
type AnalyticsResponse struct {
	WorkflowID  string            `json:"workflow_id"`
	Range       models.TimeRange  `json:"range"`
	Enrollments EnrollmentMetrics `json:"enrollments"`
	Completions int64             `json:"completions"`
	Conversion  RateMetrics       `json:"conversion"`
	Completion  RateMetrics       `json:"completion"`
	Steps       []StepBreakdown   `json:"steps"`
	ComputedAt  time.Time         `json:"computed_at"`
}

// GetWorkflowAnalytics computes the aggregate for one workflow and range,
// snapshots it for later trend queries, and reports it.
func (s *Analytics) GetWorkflowAnalytics(ctx context.Context, req AnalyticsRequest) (*AnalyticsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.get_workflow_analytics",
		trace.WithAttributes(otelhelper.WorkflowAttributes(req.WorkflowID, req.TenantID)...))
	defer span.End()

	tr, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}

	counters, err := s.persistence.StepCounters(ctx, req.WorkflowID, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to load step counters: %w", err)
	}

	sources, err := s.persistence.EnrollmentsBySource(ctx, req.WorkflowID, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment sources: %w", err)
	}

	aggregate, err := s.calculator.Compute(req.WorkflowID, tr, counters)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID))

		return nil, err
	}

	computedAt := s.now().UTC()

	snapshot, err := models.NewMetricsSnapshot(aggregate, computedAt)
	if err != nil {
		return nil, err
	}

	err = s.persistence.SaveSnapshot(ctx, snapshot)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.SnapshotIDKey, snapshot.ID))

		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.publish(ctx, req.WorkflowID, events.AnalyticsComputed{
		BaseEvent:        events.NewBaseEvent(events.AnalyticsComputedEvent, req.TenantID),
		WorkflowID:       req.WorkflowID,
		SnapshotID:       snapshot.ID,
		RangeStart:       tr.Start,
		RangeEnd:         tr.End,
		TotalEnrollments: aggregate.TotalEnrollments,
		TotalCompletions: aggregate.TotalCompletions,
	})

	response := &AnalyticsResponse{
		WorkflowID: aggregate.WorkflowID,
		Range:      aggregate.Range,
		Enrollments: EnrollmentMetrics{
			Total:    aggregate.TotalEnrollments,
			BySource: sources,
		},
		Completions: aggregate.TotalCompletions,
		Conversion:  newRateMetrics(aggregate.ConversionRate),
		Completion:  newRateMetrics(aggregate.CompletionRate),
		Steps:       make([]StepBreakdown, 0, len(aggregate.Steps)),
		ComputedAt:  computedAt,
	}

	for _, step := range aggregate.Steps {
		response.Steps = append(response.Steps, StepBreakdown{
			StepID:          step.StepID,
			Position:        step.Position,
			Entered:         step.EnteredCount,
			Exited:          step.ExitedCount,
			Completed:       step.CompletedCount,
			AverageDuration: step.AverageDuration,
			CompletionRate:  newRateMetrics(step.CompletionRate()),
			ExitBreakdown:   step.ExitBreakdown,
		})
	}

	return response, nil
}

// GetFunnel computes the drop-off breakdown for one workflow and range.
func (s *Analytics) GetFunnel(ctx context.Context, req AnalyticsRequest) (*analytics.FunnelAnalytics, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.get_funnel",
		trace.WithAttributes(otelhelper.WorkflowAttributes(req.WorkflowID, req.TenantID)...))
	defer span.End()

	tr, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}

	counters, err := s.persistence.StepCounters(ctx, req.WorkflowID, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to load step counters: %w", err)
	}

	aggregate, err := s.calculator.Compute(req.WorkflowID, tr, counters)
	if err != nil {
		return nil, err
	}

	return s.funnel.Analyze(aggregate)
}

// TrendsRequest bounds one trend query.
type TrendsRequest struct {
	AnalyticsRequest

	Granularity string `validate:"required,oneof=hourly daily weekly"`
}

// TrendsResponse is a dense, chronological trend series.
type TrendsResponse struct {
	WorkflowID  string                 `json:"workflow_id"`
	Range       models.TimeRange       `json:"range"`
	Granularity models.Granularity     `json:"granularity"`
	Points      []analytics.TrendPoint `json:"points"`
}

// GetTrends buckets the workflow's historical snapshots into a trend series.
func (s *Analytics) GetTrends(ctx context.Context, req TrendsRequest) (*TrendsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.get_trends",
		trace.WithAttributes(otelhelper.WorkflowAttributes(req.WorkflowID, req.TenantID)...))
	defer span.End()

	err := s.validate.Struct(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	granularity, err := models.ParseGranularity(req.Granularity)
	if err != nil {
		return nil, err
	}

	tr, err := s.resolveRange(req.AnalyticsRequest)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.persistence.Snapshots(ctx, req.WorkflowID, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	points, err := s.aggregator.Aggregate(snapshots, granularity)
	if err != nil {
		return nil, err
	}

	return &TrendsResponse{
		WorkflowID:  req.WorkflowID,
		Range:       tr,
		Granularity: granularity,
		Points:      points,
	}, nil
}

// StepPerformance ranks one step in the performance report.
type StepPerformance struct {
	StepID          string        `json:"step_id"`
	Name            string        `json:"name"`
	Position        int           `json:"position"`
	Entered         int64         `json:"entered"`
	Completed       int64         `json:"completed"`
	CompletionRate  RateMetrics   `json:"completion_rate"`
	AverageDuration time.Duration `json:"average_duration"`
}

// ActionPerformanceResponse ranks a workflow's steps by completion rate.
type ActionPerformanceResponse struct {
	WorkflowID string            `json:"workflow_id"`
	Range      models.TimeRange  `json:"range"`
	Steps      []StepPerformance `json:"steps"`
}

// GetActionPerformance reports per-step throughput ranked by completion
// rate, best performers first, ties broken by pipeline order.
func (s *Analytics) GetActionPerformance(ctx context.Context, req AnalyticsRequest) (*ActionPerformanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.get_action_performance",
		trace.WithAttributes(otelhelper.WorkflowAttributes(req.WorkflowID, req.TenantID)...))
	defer span.End()

	tr, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}

	definitions, err := s.persistence.WorkflowSteps(ctx, req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step definitions: %w", err)
	}

	names := make(map[string]string, len(definitions))
	for _, definition := range definitions {
		names[definition.StepID] = definition.Name
	}

	counters, err := s.persistence.StepCounters(ctx, req.WorkflowID, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to load step counters: %w", err)
	}

	aggregate, err := s.calculator.Compute(req.WorkflowID, tr, counters)
	if err != nil {
		return nil, err
	}

	steps := make([]StepPerformance, 0, len(aggregate.Steps))

	for _, step := range aggregate.Steps {
		steps = append(steps, StepPerformance{
			StepID:          step.StepID,
			Name:            names[step.StepID],
			Position:        step.Position,
			Entered:         step.EnteredCount,
			Completed:       step.CompletedCount,
			CompletionRate:  newRateMetrics(step.CompletionRate()),
			AverageDuration: step.AverageDuration,
		})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].CompletionRate.Rate.Value() != steps[j].CompletionRate.Rate.Value() {
			return steps[i].CompletionRate.Rate.Value() > steps[j].CompletionRate.Rate.Value()
		}

		return steps[i].Position < steps[j].Position
	})

	return &ActionPerformanceResponse{
		WorkflowID: req.WorkflowID,
		Range:      tr,
		Steps:      steps,
	}, nil
}

// resolveRange validates the request and materializes its time range.
func (s *Analytics) resolveRange(req AnalyticsRequest) (models.TimeRange, error) {
	err := s.validate.Struct(req)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	switch {
	case req.Preset != "":
		return models.RangePreset(req.Preset).Resolve(s.now())
	case req.Start != nil && req.End != nil:
		return models.NewTimeRange(*req.Start, *req.End)
	case req.Start != nil || req.End != nil:
		return models.TimeRange{}, ErrMissingRange
	default:
		return models.RangePresetLast30Days.Resolve(s.now())
	}
}

// publish sends an audit event without failing the query: a read must not
// break because the audit trail is down. Failed publishes are logged and
// dropped.
func (s *Analytics) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish audit event",
			"event_type", event.GetType(),
			"workflow_id", key,
			"error", err)
	}
}
