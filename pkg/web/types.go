package web

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/nurtura/nurtura/pkg/services"
)

// TenantHeader and UserHeader identify the caller. They feed both the
// tenant scoping of queries and the rate-limit key.
const (
	TenantHeader = "X-Tenant-ID"
	UserHeader   = "X-User-ID"
)

// parseAnalyticsRequest reads the shared query parameters of every analytics
// endpoint: either preset, or start and end as RFC 3339 timestamps.
func (h *APIHandlers) parseAnalyticsRequest(c fiber.Ctx) (*services.AnalyticsRequest, error) {
	req := &services.AnalyticsRequest{
		WorkflowID: c.Params("id"),
		TenantID:   c.Get(TenantHeader),
		Preset:     c.Query("preset"),
	}

	start, err := parseTimestamp(c.Query("start"), "start")
	if err != nil {
		return nil, err
	}

	end, err := parseTimestamp(c.Query("end"), "end")
	if err != nil {
		return nil, err
	}

	req.Start = start
	req.End = end

	return req, nil
}

func parseTimestamp(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp: %w", name, err)
	}

	return &parsed, nil
}

// ExportAnalyticsRequest is the request body for exporting a workflow's
// analytics. The range parameters mirror the query endpoints.
type ExportAnalyticsRequest struct {
	Format string `json:"format"           validate:"required,oneof=csv json pdf"`
	Preset string `json:"preset,omitempty" validate:"omitempty,oneof=today last_7_days last_30_days last_90_days"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func (r ExportAnalyticsRequest) toServiceRequest(c fiber.Ctx) (*services.ExportRequest, error) {
	start, err := parseTimestamp(r.Start, "start")
	if err != nil {
		return nil, err
	}

	end, err := parseTimestamp(r.End, "end")
	if err != nil {
		return nil, err
	}

	return &services.ExportRequest{
		AnalyticsRequest: services.AnalyticsRequest{
			WorkflowID: c.Params("id"),
			TenantID:   c.Get(TenantHeader),
			Preset:     r.Preset,
			Start:      start,
			End:        end,
		},
		Format: r.Format,
	}, nil
}
