package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and records err together with the
// attributes identifying the failing query (workflow, snapshot, format).
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// WorkflowAttributes builds the span attributes shared by every per-workflow
// analytics span.
func WorkflowAttributes(workflowID, tenantID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(WorkflowIDKey, workflowID),
	}

	if tenantID != "" {
		attrs = append(attrs, attribute.String(TenantIDKey, tenantID))
	}

	return attrs
}
