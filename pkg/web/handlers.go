// Package web provides the HTTP handlers and REST endpoints for the
// workflow analytics API.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/nurtura/nurtura/pkg/persistence"
	"github.com/nurtura/nurtura/pkg/services"
)

type APIHandlers struct {
	analyticsService *services.Analytics
	persistence      persistence.Persistence
	validator        *validator.Validate
}

func NewAPIHandlers(
	analyticsService *services.Analytics,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		analyticsService: analyticsService,
		persistence:      persistence,
		validator:        validator,
	}
}

func (h *APIHandlers) GetWorkflowAnalytics(c fiber.Ctx) error {
	req, err := h.parseAnalyticsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.analyticsService.GetWorkflowAnalytics(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetFunnel(c fiber.Ctx) error {
	req, err := h.parseAnalyticsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.analyticsService.GetFunnel(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetTrends(c fiber.Ctx) error {
	base, err := h.parseAnalyticsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	req := services.TrendsRequest{
		AnalyticsRequest: *base,
		Granularity:      c.Query("granularity", "daily"),
	}

	result, err := h.analyticsService.GetTrends(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetActionPerformance(c fiber.Ctx) error {
	req, err := h.parseAnalyticsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.analyticsService.GetActionPerformance(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ExportAnalytics(c fiber.Ctx) error {
	var body ExportAnalyticsRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	req, err := body.toServiceRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.analyticsService.ExportAnalytics(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)

	return c.Send(result.Payload)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Nurtura analytics API is healthy"
	httpStatus := http.StatusOK

	repositoryCheck := "ok"
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Nurtura analytics API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
