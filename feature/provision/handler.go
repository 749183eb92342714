package provision

import (
	"errors"

	"schema-manager/core/executor"
	"schema-manager/core/logger"
	"schema-manager/core/schema"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for provisioning sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sessions")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleOpen)
	group.Get("/:id", h.HandleGet)
	group.Delete("/:id", h.HandleClose)
	group.Post("/:id/mutate", h.HandleMutate)
	group.Post("/:id/drop-tables", h.HandleDropTables)
	group.Delete("/:id/tables", h.HandleDropAllTables)
	group.Delete("/:id/views", h.HandleDropAllViews)
	group.Post("/:id/invalidate", h.HandleInvalidate)
}

// OpenRequest is the body of POST /sessions.
type OpenRequest struct {
	Database string `json:"database"`
}

// MutateRequest is the body of POST /sessions/:id/mutate.
type MutateRequest struct {
	Schema     schema.Schema `json:"schema"`
	Truncation string        `json:"truncation"`
}

// DropTablesRequest is the body of POST /sessions/:id/drop-tables.
type DropTablesRequest struct {
	Tables []string `json:"tables"`
}

// HandleList lists open sessions.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.service.List()})
}

// HandleOpen opens a session.
func (h *Handler) HandleOpen(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req OpenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	sess, err := h.service.Open(c.Context(), req.Database)
	if err != nil {
		l.Error("Failed to open session", zap.String("database", req.Database), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sess.ID, "database": sess.Database})
}

// HandleGet returns a session and the state of its cache.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	sess, err := h.service.Get(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"session": sess, "cache": sess.Snapshot()})
}

// HandleClose closes a session.
func (h *Handler) HandleClose(c *fiber.Ctx) error {
	if err := h.service.Close(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMutate reconciles the session's database with the schema in the body.
func (h *Handler) HandleMutate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req MutateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	behavior, err := h.service.Truncation(req.Truncation)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.Mutate(c.Context(), c.Params("id"), req.Schema, behavior)
	if err != nil {
		return h.fail(c, err)
	}

	l.Info("Schema supported",
		zap.String("session", c.Params("id")),
		zap.String("truncation", behavior.String()),
		zap.Int("statements", len(result.Statements)))
	return c.JSON(result)
}

// HandleDropTables drops the listed tables.
func (h *Handler) HandleDropTables(c *fiber.Ctx) error {
	var req DropTablesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.service.DropTables(c.Context(), c.Params("id"), req.Tables); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "dropped"})
}

// HandleDropAllTables drops every table.
func (h *Handler) HandleDropAllTables(c *fiber.Ctx) error {
	if err := h.service.DropAllTables(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "dropped"})
}

// HandleDropAllViews drops every view.
func (h *Handler) HandleDropAllViews(c *fiber.Ctx) error {
	if err := h.service.DropAllViews(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "dropped"})
}

// HandleInvalidate discards the session's cache.
func (h *Handler) HandleInvalidate(c *fiber.Ctx) error {
	if err := h.service.Invalidate(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "invalidated"})
}

// fail maps service errors to responses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var invalid *schema.ValidationError
	var script *executor.ScriptError

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &invalid), errors.Is(err, schema.ErrViewCycle):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &script):
		logger.WithRayID(h.service.logger, c).Error("Script failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     "Script failed",
			"details":   script.Err.Error(),
			"statement": script.Statement,
		})
	default:
		logger.WithRayID(h.service.logger, c).Error("Operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
