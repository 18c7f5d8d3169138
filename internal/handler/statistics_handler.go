package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// StatisticsHandler serves class statistics and grade exports.
type StatisticsHandler struct {
	statistics service.StatisticsService
	exports    service.ExportService
	logger     zerolog.Logger
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(statistics service.StatisticsService, exports service.ExportService, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		statistics: statistics,
		exports:    exports,
		logger:     logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// Register attaches the routes to the assignments group.
func (h *StatisticsHandler) Register(router fiber.Router) {
	router.Get("/:id/stats", h.stats)
	router.Get("/:id/export", h.export)
}

func (h *StatisticsHandler) stats(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.statistics.ForAssignment(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "class statistics", stats)
}

func (h *StatisticsHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form := c.Query("form", service.ExportFormWide)
	data, err := h.exports.Export(requestContext(c), id, form, actorFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedExportForm) {
			return utils.SendError(c, fiber.StatusBadRequest, "form must be wide or long")
		}
		return sendServiceError(c, h.logger, err)
	}

	filename := fmt.Sprintf("assignment_%d_%s.csv", id, form)
	return utils.SendDocument(c, "text/csv; charset=utf-8", filename, data)
}
