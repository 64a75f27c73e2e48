// Package events defines the audit event types emitted by the analytics core.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the audit trail topic.
const Topic = "nurtura.audit"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Analytics audit events.
	AnalyticsComputedEvent EventType = "analytics.computed"
	AnalyticsExportedEvent EventType = "analytics.exported"

	// Rate limiting audit events.
	RateLimitExceededEvent EventType = "ratelimit.exceeded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// AnalyticsComputed records that a workflow's metrics were computed and
// snapshotted.
type AnalyticsComputed struct {
	BaseEvent

	WorkflowID       string    `json:"workflow_id"`
	SnapshotID       string    `json:"snapshot_id"`
	RangeStart       time.Time `json:"range_start"`
	RangeEnd         time.Time `json:"range_end"`
	TotalEnrollments int64     `json:"total_enrollments"`
	TotalCompletions int64     `json:"total_completions"`
}

func (e AnalyticsComputed) GetType() EventType {
	return AnalyticsComputedEvent
}

// AnalyticsExported records that a workflow's metrics were exported.
type AnalyticsExported struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Format     string `json:"format"`
}

func (e AnalyticsExported) GetType() EventType {
	return AnalyticsExportedEvent
}

// RateLimitExceeded records a denied mutation request.
type RateLimitExceeded struct {
	BaseEvent

	Key        string        `json:"key"`
	Limit      int64         `json:"limit"`
	RetryAfter time.Duration `json:"retry_after"`
}

func (e RateLimitExceeded) GetType() EventType {
	return RateLimitExceededEvent
}
