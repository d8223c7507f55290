package uploads

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/storage/object"
)

const (
	maxUploadBytes = 10 << 20
	presignExpires = 15 * time.Minute
)

// uploadTypes are the resume formats the extractor can read.
var uploadTypes = map[string]bool{
	extract.MimePDF:   true,
	extract.MimeDOCX:  true,
	extract.MimePlain: true,
}

// Presigner issues PUT URLs for object keys.
type Presigner interface {
	PresignPut(ctx context.Context, storageKey string, expires time.Duration) (string, error)
}

// Handler hands out presigned URLs so browsers can upload resumes straight
// to the bucket. A nil Presigner disables the route.
type Handler struct {
	Presigner Presigner
	now       func() time.Time
}

func NewHandler(p Presigner) *Handler {
	return &Handler{Presigner: p, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.presign)
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type fieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func (r *presignRequest) issues() []fieldIssue {
	r.FileName = strings.TrimSpace(r.FileName)
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))

	var out []fieldIssue
	if r.FileName == "" {
		out = append(out, fieldIssue{"fileName", "required"})
	}
	if !uploadTypes[r.ContentType] {
		out = append(out, fieldIssue{"contentType", "unsupported"})
	}
	switch {
	case r.SizeBytes <= 0:
		out = append(out, fieldIssue{"sizeBytes", "must be positive"})
	case r.SizeBytes > maxUploadBytes:
		out = append(out, fieldIssue{"sizeBytes", "exceeds the 10MB limit"})
	}
	return out
}

type presignResponse struct {
	UploadURL        string    `json:"uploadUrl"`
	S3Key            string    `json:"s3Key"`
	ExpiresInSeconds int64     `json:"expiresInSeconds"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

func (h *Handler) presign(c *gin.Context) {
	if h.Presigner == nil {
		respond.Error(c, http.StatusNotImplemented, "not_configured", "direct uploads require OBJECT_STORE=s3", nil)
		return
	}
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if issues := req.issues(); len(issues) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid upload request", issues)
		return
	}

	key, err := object.NewKey(middleware.UserIDFromContext(c), req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid upload request", []fieldIssue{{"fileName", "invalid"}})
		return
	}
	middleware.Annotate(c, "s3_key", key)

	issuedAt := h.now()
	url, err := h.Presigner.PresignPut(c.Request.Context(), key, presignExpires)
	if err != nil {
		respond.Internal(c, "failed to generate upload url", err)
		return
	}
	respond.OK(c, presignResponse{
		UploadURL:        url,
		S3Key:            key,
		ExpiresInSeconds: int64(presignExpires / time.Second),
		ExpiresAt:        issuedAt.Add(presignExpires).UTC(),
	})
}
