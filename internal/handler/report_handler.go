package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark/hweval-api/internal/service"
	"github.com/penmark/hweval-api/internal/utils"
)

// ReportHandler exposes aggregated evaluation reports.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler builds a report handler instance.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/overview", h.overview)
}

func (h *ReportHandler) overview(c *fiber.Ctx) error {
	overview, err := h.service.Overview(c.Context(), queryString(c, "subject"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "report overview retrieved", overview)
}
