package documents

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
)

const (
	maxUploadSize   = 10 << 20
	defaultPageSize = 20
	maxPageSize     = 50
)

// Handler serves resume upload, lookup and parsing.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/parse", h.parse)
	rg.POST("/documents", h.upload)
	rg.POST("/documents/from-s3", h.createFromS3)
	rg.GET("/documents", h.list)
	rg.GET("/documents/current", h.current)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.remove)
}

// fail maps service errors onto the error envelope. action completes the
// "failed to ..." message used for unexpected errors.
func fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrForeignKey):
		respond.Error(c, http.StatusForbidden, "forbidden", "s3Key does not belong to this user", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Internal(c, "failed to "+action, err)
	}
}

// formFile opens the "file" part of a size-limited multipart body. It writes
// the 400 itself and reports false on failure.
func formFile(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return nil, nil, false
	}
	return f, header, true
}

func (h *Handler) parse(c *gin.Context) {
	f, header, ok := formFile(c)
	if !ok {
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	text, err := ParseResume(c.Request.Context(), data, header.Header.Get("Content-Type"), header.Filename)
	switch {
	case err == nil:
		respond.OK(c, gin.H{"text": text})
	case errors.Is(err, ErrNotPDF):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Only PDF files are supported", nil)
	case errors.Is(err, extract.ErrNoText):
		respond.Error(c, http.StatusBadRequest, "validation_error", "No readable text found in PDF", nil)
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to parse PDF", nil)
	}
}

func (h *Handler) upload(c *gin.Context) {
	f, header, ok := formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), middleware.UserIDFromContext(c), header.Filename, f)
	if err != nil {
		fail(c, err, "upload document")
		return
	}
	middleware.Annotate(c, "document_id", doc.ID)
	respond.Created(c, viewOf(doc))
}

type createFromS3Request struct {
	S3Key            string `json:"s3Key"`
	OriginalFileName string `json:"originalFileName"`
	ContentType      string `json:"contentType"`
	SizeBytes        int64  `json:"sizeBytes"`
}

func (r *createFromS3Request) validate() string {
	r.S3Key = strings.TrimSpace(r.S3Key)
	r.OriginalFileName = strings.TrimSpace(r.OriginalFileName)
	r.ContentType = strings.TrimSpace(r.ContentType)
	switch {
	case r.S3Key == "":
		return "s3Key is required"
	case r.OriginalFileName == "":
		return "originalFileName is required"
	case r.ContentType == "":
		return "contentType is required"
	case r.SizeBytes <= 0:
		return "sizeBytes must be positive"
	case r.SizeBytes > maxUploadSize:
		return "sizeBytes exceeds the 10MB limit"
	}
	return ""
}

func (h *Handler) createFromS3(c *gin.Context) {
	var req createFromS3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if msg := req.validate(); msg != "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
		return
	}

	doc, err := h.Svc.CreateFromS3(c.Request.Context(), middleware.UserIDFromContext(c), req.S3Key, req.OriginalFileName, req.ContentType, req.SizeBytes)
	if err != nil {
		fail(c, err, "create document")
		return
	}
	middleware.Annotate(c, "document_id", doc.ID)
	respond.Created(c, viewOf(doc))
}

func (h *Handler) current(c *gin.Context) {
	doc, err := h.Svc.Current(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		fail(c, err, "fetch document")
		return
	}
	respond.OK(c, viewOf(doc))
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		fail(c, err, "fetch document")
		return
	}
	respond.OK(c, viewOf(doc))
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	middleware.Annotate(c, "document_id", id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		fail(c, err, "delete document")
		return
	}
	respond.NoContent(c)
}

// list is history and needs a signed-in user.
func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}
	limit := clamp(queryInt(c, "limit", defaultPageSize), 0, maxPageSize)
	offset := max(queryInt(c, "offset", 0), 0)

	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		fail(c, err, "list documents")
		return
	}
	respond.OK(c, viewsOf(docs))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
