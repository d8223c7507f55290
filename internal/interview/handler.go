package interview

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/jobs"
	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interviews", h.start)
	rg.GET("/interviews/:id", h.get)
	rg.POST("/interviews/:id/answers", h.answer)
	rg.GET("/interviews/:id/report", h.report)
}

func (h *Handler) start(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	var in StartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	session, err := h.Svc.Start(c.Request.Context(), userID, in)
	if err != nil {
		h.writeError(c, err, "failed to start interview")
		return
	}
	middleware.Annotate(c, "interview_id", session.ID)
	respond.Created(c, viewOf(session))
}

func (h *Handler) get(c *gin.Context) {
	session, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to fetch interview")
		return
	}
	respond.OK(c, viewOf(session))
}

func (h *Handler) answer(c *gin.Context) {
	middleware.Annotate(c, "interview_id", c.Param("id"))
	var in AnswerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	session, answer, err := h.Svc.SubmitAnswer(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err, "failed to score answer")
		return
	}
	respond.OK(c, gin.H{
		"answer":  answer,
		"session": viewOf(session),
	})
}

func (h *Handler) report(c *gin.Context) {
	session, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to fetch interview")
		return
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, session); err != nil {
		telemetry.Error("interview.report.failed", map[string]any{"interview_id": session.ID, "err": err})
		respond.Internal(c, "failed to render report", err)
		return
	}
	respond.Attachment(c, "interview-"+session.ID+".xlsx", ReportContentType, buf.Bytes())
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "interview not found", nil)
	case errors.Is(err, jobs.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
	case errors.Is(err, ErrAlreadyAnswered):
		respond.Error(c, http.StatusConflict, "conflict", "question already answered", nil)
	case errors.Is(err, ErrSchemaMismatch):
		respond.Error(c, http.StatusBadGateway, "llm_schema_mismatch", err.Error(), nil)
	case llm.IsTimeout(err):
		respond.Error(c, http.StatusGatewayTimeout, "llm_timeout", "the model did not answer in time", nil)
	default:
		telemetry.Error("interview.request.failed", map[string]any{
			"err":        err,
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Internal(c, fallback, err)
	}
}
