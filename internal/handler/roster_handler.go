package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// HeaderRosterToken carries the shared secret for roster imports.
const HeaderRosterToken = "X-Roster-Token"

// RosterHandler exposes the token-guarded roster import.
type RosterHandler struct {
	service service.RosterService
	logger  zerolog.Logger
}

// NewRosterHandler constructs a roster handler.
func NewRosterHandler(service service.RosterService, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		service: service,
		logger:  logger.With().Str("component", "roster_handler").Logger(),
	}
}

// Register wires roster routes.
func (h *RosterHandler) Register(router fiber.Router) {
	router.Post("", h.importRoster)
}

func (h *RosterHandler) importRoster(c *fiber.Ctx) error {
	var payload dto.RosterImportRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Import(requestContext(c), c.Get(HeaderRosterToken), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRosterImportDisabled):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrRosterUnauthorized):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		default:
			return sendServiceError(c, h.logger, err)
		}
	}

	return utils.SendSuccess(c, "roster imported", result)
}
