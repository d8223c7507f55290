package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/telemetry"
)

const guestHeader = "X-Guest-Id"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/account/summary", h.summary)
	rg.POST("/account/claim-guest", middleware.RequireUser(), h.claimGuest)
}

type summaryResponse struct {
	Summary
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
}

func (h *Handler) summary(c *gin.Context) {
	userID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return
	}
	counts, err := h.Svc.Summary(c.Request.Context(), userID)
	if err != nil {
		telemetry.Error("account.summary.failed", map[string]any{"user_id": userID, "error": err.Error()})
		respond.Internal(c, "failed to load account summary", err)
		return
	}
	respond.OK(c, summaryResponse{Summary: counts, UserID: userID, IsGuest: middleware.IsGuestFromContext(c)})
}

var (
	errGuestMissing = errors.New("missing X-Guest-Id header")
	errGuestInvalid = errors.New("invalid guest id")
)

// guestOwner turns the X-Guest-Id header into the owner id guest data is
// stored under. Guest ids are UUIDs minted by the UI.
func guestOwner(c *gin.Context) (string, error) {
	raw := strings.TrimSpace(c.GetHeader(guestHeader))
	if raw == "" {
		return "", errGuestMissing
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", errGuestInvalid
	}
	return "guest:" + raw, nil
}

// claimGuest moves everything created under the caller's guest id to the
// signed-in account. Running it twice moves nothing the second time.
func (h *Handler) claimGuest(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	guestUserID, err := guestOwner(c)
	if err != nil {
		issue := "required"
		if errors.Is(err, errGuestInvalid) {
			issue = "invalid"
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": guestHeader, "issue": issue},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), guestUserID, userID)
	if err != nil {
		telemetry.Error("account.claim_guest.failed", map[string]any{"user_id": userID, "error": err.Error()})
		respond.Internal(c, "failed to claim guest data", err)
		return
	}
	telemetry.Info("account.claim_guest", map[string]any{
		"user_id":    userID,
		"documents":  result.MigratedDocuments,
		"analyses":   result.MigratedAnalyses,
		"interviews": result.MigratedInterviews,
	})
	respond.OK(c, result)
}
