package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/internal/service"
	"github.com/penmark/hweval-api/internal/utils"
)

// EvaluationHandler manages evaluation run endpoints including the progress
// websocket.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/summary", h.summary)

	router.Use("/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/progress", websocket.New(h.streamProgress))
}

// RegisterStart binds the run trigger under the homework set group. Guards
// run ahead of the handler; the trigger fans out paid adjudicator calls, so
// the router throttles it per user.
func (h *EvaluationHandler) RegisterStart(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/:id/evaluations", append(guards, h.start)...)
}

func (h *EvaluationHandler) start(c *fiber.Ctx) error {
	setID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var triggeredBy *uint
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			triggeredBy = &id
		}
	}

	run, err := h.service.StartRun(c.Context(), setID, triggeredBy)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation run started", run)
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	setID, err := queryUint(c, "homework_set_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := repository.EvaluationRunFilter{
		HomeworkSetID: setID,
		Status:        queryString(c, "status"),
		Subject:       queryString(c, "subject"),
	}

	runs, err := h.service.ListRuns(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation runs retrieved", runs)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	run, err := h.service.GetRun(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation run retrieved", run)
}

func (h *EvaluationHandler) summary(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.RunSummary(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation summary retrieved", summary)
}

// streamProgress forwards per-item progress events to the websocket client
// until the subscription drains or the client goes away.
func (h *EvaluationHandler) streamProgress(conn *websocket.Conn) {
	defer conn.Close()

	id, err := websocketRunID(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid run id"))
		return
	}

	events, cancel := h.service.SubscribeProgress(id)
	defer cancel()

	h.logger.Info().Uint("run_id", id).Msg("progress websocket connected")

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
		if event.Completed >= event.Total {
			break
		}
	}

	h.logger.Info().Uint("run_id", id).Msg("progress websocket disconnected")
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrHomeworkSetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "homework set not found")
	case errors.Is(err, service.ErrHomeworkSetNotReady):
		return utils.SendError(c, fiber.StatusConflict, "homework set has no baseline or ai records")
	case errors.Is(err, service.ErrEvaluationRunNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation run not found")
	case errors.Is(err, service.ErrRunNotCompleted):
		return utils.SendError(c, fiber.StatusConflict, "evaluation run not completed")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func websocketRunID(conn *websocket.Conn) (uint, error) {
	parsed, err := strconv.ParseUint(conn.Params("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
