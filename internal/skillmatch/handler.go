package skillmatch

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/telemetry"
)

// Handler exposes the analyzer over HTTP.
type Handler struct {
	Analyzer *Analyzer
	// Debug attaches raw/normalized/final payloads to validation failures.
	Debug bool
}

// NewHandler constructs a Handler.
func NewHandler(a *Analyzer, debug bool) *Handler {
	return &Handler{Analyzer: a, Debug: debug}
}

// RegisterRoutes attaches skill-match routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/skills/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	result, trace, err := h.Analyzer.Analyze(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		telemetry.Error("skillmatch.analyze.failed", map[string]any{
			"err":         err,
			"request_id":  telemetry.RequestID(c.Request.Context()),
			"prompt_hash": trace.PromptHash,
		})
		var details any
		var vErr *ValidationError
		if h.Debug && errors.As(err, &vErr) {
			details = gin.H{
				"raw":        vErr.Raw,
				"normalized": vErr.Normalized,
				"final":      vErr.Final,
			}
		}
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", "Failed to analyze skills: "+err.Error(), details)
		return
	}

	middleware.Annotate(c, "match_source", string(trace.Source))
	middleware.Annotate(c, "server_score", trace.ServerScore)
	respond.OK(c, result)
}
