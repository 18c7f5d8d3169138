package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// ClassReportHandler exposes class report generation and retrieval.
type ClassReportHandler struct {
	service service.ClassReportService
	logger  zerolog.Logger
}

// NewClassReportHandler constructs the handler.
func NewClassReportHandler(service service.ClassReportService, logger zerolog.Logger) *ClassReportHandler {
	return &ClassReportHandler{
		service: service,
		logger:  logger.With().Str("component", "class_report_handler").Logger(),
	}
}

// Register attaches the routes to the assignments group.
func (h *ClassReportHandler) Register(router fiber.Router) {
	router.Post("/:id/class-reports", h.generate)
	router.Get("/:id/class-reports", h.list)
	router.Get("/:id/class-reports/latest", h.latest)
}

func (h *ClassReportHandler) generate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Generate(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "class report generated", report)
}

func (h *ClassReportHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reports, err := h.service.List(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, reports, "class reports retrieved", fiber.Map{"total": len(reports)})
}

func (h *ClassReportHandler) latest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Latest(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "latest class report", report)
}

func (h *ClassReportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNoGradedReports):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrClassReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		return sendServiceError(c, h.logger, err)
	}
}
