package server

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/poiesic/docqa/conversation"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/indexing"
	"github.com/poiesic/docqa/qa"
)

// QueryService answers questions.
type QueryService interface {
	Query(ctx context.Context, req qa.Request) qa.Result
}

// IndexBuilder rebuilds or extends the vector index.
type IndexBuilder interface {
	BuildIndex(ctx context.Context, paths []string, force bool) indexing.Result
}

var validate = validator.New()

type CheckHandler struct{}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// QueryResponse reports processing time in seconds.
type QueryResponse struct {
	qa.Result
	ProcessingTime float64 `json:"processing_time"`
}

type QueryHandler struct {
	service QueryService
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req qa.Request
	if c.BodyParser(&req) != nil {
		return ErrBadRequest()
	}
	if errs := req.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}
	if req.SessionID == "" {
		req.SessionID = conversation.NewSessionID()
	}
	res := h.service.Query(c.UserContext(), req)
	return c.JSON(QueryResponse{Result: res, ProcessingTime: res.ProcessingTime.Seconds()})
}

type IndexParams struct {
	Paths        []string `json:"paths" validate:"required,min=1,dive,required"`
	ForceRebuild bool     `json:"force_rebuild"`
}

type IndexResponse struct {
	Success            bool    `json:"success"`
	DocumentsProcessed int     `json:"documents_processed"`
	DocumentsFailed    int     `json:"documents_failed"`
	ProcessingTime     float64 `json:"processing_time"`
	Message            string  `json:"message"`
}

type IndexHandler struct {
	indexer IndexBuilder
}

func (h *IndexHandler) HandleIndex(c *fiber.Ctx) error {
	var params IndexParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if err := validate.Struct(&params); err != nil {
		errs := map[string]string{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				errs[e.Field()] = "failed on '" + e.Tag() + "' tag"
			}
		}
		return NewValidationError(errs)
	}

	res := h.indexer.BuildIndex(c.UserContext(), params.Paths, params.ForceRebuild)
	status := fiber.StatusOK
	if !res.Success {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(IndexResponse{
		Success:            res.Success,
		DocumentsProcessed: res.DocumentsProcessed,
		DocumentsFailed:    res.DocumentsFailed,
		ProcessingTime:     res.ProcessingTime.Seconds(),
		Message:            res.Message,
	})
}

type HistoryMessage struct {
	Role      core.Role      `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type SessionHandler struct {
	sessions *conversation.Store
}

func (h *SessionHandler) HandleHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.sessions.Session(id); !ok {
		return ErrSessionNotFound(id)
	}
	limit := c.QueryInt("limit", 10)

	history := h.sessions.History(id, limit)
	out := make([]HistoryMessage, len(history))
	for i, m := range history {
		out[i] = HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			Metadata:  m.Metadata,
		}
	}
	return c.JSON(fiber.Map{"session_id": id, "messages": out})
}

func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.sessions.ClearSession(id) {
		return ErrSessionNotFound(id)
	}
	return c.JSON(fiber.Map{"result": "ok"})
}
