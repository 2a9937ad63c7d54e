package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/internal/service"
	"github.com/penmark/hweval-api/internal/utils"
	"github.com/penmark/hweval-api/pkg/textnorm"
)

// HomeworkSetHandler manages homework set endpoints.
type HomeworkSetHandler struct {
	service service.HomeworkSetService
	logger  zerolog.Logger
}

// NewHomeworkSetHandler builds a homework set handler instance.
func NewHomeworkSetHandler(service service.HomeworkSetService, logger zerolog.Logger) *HomeworkSetHandler {
	return &HomeworkSetHandler{
		service: service,
		logger:  logger.With().Str("component", "homework_set_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. reviewerOnly
// guards the destructive and ingest routes; a nil guard leaves them open.
func (h *HomeworkSetHandler) Register(router fiber.Router, reviewerOnly fiber.Handler) {
	if reviewerOnly == nil {
		reviewerOnly = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", reviewerOnly, h.delete)
	router.Put("/:id/records/:role", reviewerOnly, h.ingestRecords)
	router.Post("/:id/scan", h.attachScan)
}

func (h *HomeworkSetHandler) list(c *fiber.Ctx) error {
	filter := repository.HomeworkSetFilter{
		Subject: queryString(c, "subject"),
		Status:  queryString(c, "status"),
	}

	sets, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "homework sets retrieved", sets)
}

func (h *HomeworkSetHandler) create(c *fiber.Ctx) error {
	var payload dto.HomeworkSetCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	set, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "homework set created", set)
}

func (h *HomeworkSetHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "homework set retrieved", set)
}

func (h *HomeworkSetHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.HomeworkSetUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	set, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "homework set updated", set)
}

func (h *HomeworkSetHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "homework set deleted", nil)
}

func (h *HomeworkSetHandler) ingestRecords(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	role := c.Params("role")

	var payload dto.AnswerRecordsIngestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	set, err := h.service.IngestRecords(c.Context(), id, role, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer records ingested", set)
}

func (h *HomeworkSetHandler) attachScan(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("scan")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "scan file is required")
	}

	set, err := h.service.AttachScan(c.Context(), id, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "scan attached", set)
}

func (h *HomeworkSetHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrHomeworkSetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "homework set not found")
	case errors.Is(err, service.ErrInvalidAnswerRole):
		return utils.SendError(c, fiber.StatusBadRequest, "role must be baseline or ai")
	case errors.Is(err, service.ErrScanTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "scan exceeds maximum allowed size")
	case errors.Is(err, service.ErrScanTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "scan must be an image")
	case errors.Is(err, textnorm.ErrCorrectFlag):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
