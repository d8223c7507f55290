package analyses

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/documents"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.save)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/history", h.history)
	rg.GET("/history/export", h.export)
	rg.POST("/documents/:id/analyze", h.startAnalysis)
}

func (h *Handler) save(c *gin.Context) {
	var in SaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	own := strings.TrimSpace(middleware.UserEmailFromContext(c))
	if strings.TrimSpace(in.UserEmail) == "" {
		in.UserEmail = own
	} else if own != "" && !middleware.IsAdminFromContext(c) && !strings.EqualFold(strings.TrimSpace(in.UserEmail), own) {
		respond.Error(c, http.StatusForbidden, "forbidden", "analyses can only be saved to your own history", nil)
		return
	}

	analysis, err := h.Svc.Save(c.Request.Context(), ownerOf(c), in)
	if err != nil {
		writeError(c, err, "failed to save analysis")
		return
	}
	respond.Created(c, gin.H{"id": analysis.ID})
}

func (h *Handler) history(c *gin.Context) {
	email, ok := historyEmail(c)
	if !ok {
		return
	}
	items, err := h.Svc.History(c.Request.Context(), email)
	if err != nil {
		writeError(c, err, "failed to load history")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"items": items})
}

func (h *Handler) export(c *gin.Context) {
	email, ok := historyEmail(c)
	if !ok {
		return
	}
	items, err := h.Svc.History(c.Request.Context(), email)
	if err != nil {
		writeError(c, err, "failed to load history")
		return
	}
	var buf bytes.Buffer
	if err := WriteHistory(&buf, items); err != nil {
		respond.Internal(c, "failed to render export", err)
		return
	}
	respond.Attachment(c, "analysis-history.xlsx", ExportContentType, buf.Bytes())
}

// historyEmail resolves whose history is requested. Admins may name any email;
// everyone else is limited to their own.
func historyEmail(c *gin.Context) (string, bool) {
	requested := strings.TrimSpace(c.Query("userEmail"))
	if middleware.IsAdminFromContext(c) {
		if requested == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "userEmail is required", []map[string]string{
				{"field": "userEmail", "issue": "required"},
			})
			return "", false
		}
		return requested, true
	}

	own := strings.TrimSpace(middleware.UserEmailFromContext(c))
	if own == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userEmail is required", []map[string]string{
			{"field": "userEmail", "issue": "required"},
		})
		return "", false
	}
	if requested != "" && !strings.EqualFold(requested, own) {
		respond.Error(c, http.StatusForbidden, "forbidden", "history is only available for your own email", nil)
		return "", false
	}
	return own, true
}

func (h *Handler) startAnalysis(c *gin.Context) {
	documentID := c.Param("id")
	middleware.Annotate(c, "document_id", documentID)
	var body struct {
		JobDescription string `json:"jobDescription"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	analysis, err := h.Svc.StartDocumentAnalysis(c.Request.Context(), ownerOf(c), documentID, body.JobDescription)
	if err != nil {
		writeError(c, err, "failed to start analysis")
		return
	}
	middleware.Annotate(c, "analysis_id", analysis.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	middleware.Annotate(c, "analysis_id", c.Param("id"))
	analysis, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch analysis")
		return
	}
	respond.JSON(c, http.StatusOK, analysis)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list analyses")
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, a := range items {
		item := gin.H{
			"analysisId":     a.ID,
			"documentId":     a.DocumentID,
			"resumeFileName": a.ResumeFileName,
			"status":         a.Status,
			"createdAt":      a.CreatedAt,
		}
		if a.MatchScore != nil {
			item["matchScore"] = *a.MatchScore
		}
		if a.ErrorCode != "" {
			item["errorCode"] = a.ErrorCode
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, gin.H{"items": resp, "limit": limit, "offset": offset})
}

func ownerOf(c *gin.Context) Owner {
	return Owner{
		UserID: middleware.UserIDFromContext(c),
		Email:  middleware.UserEmailFromContext(c),
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func writeError(c *gin.Context, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid analysis", verr.Issues)
	case errors.Is(err, ErrEmailRequired):
		respond.Error(c, http.StatusBadRequest, "validation_error", "userEmail is required", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	default:
		respond.Internal(c, fallback, err)
	}
}
