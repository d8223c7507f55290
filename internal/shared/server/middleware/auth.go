package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"careerpilot-backend/internal/shared/auth"
	"careerpilot-backend/internal/shared/server/respond"
)

const identityKey = "identity"

// Identity is who the caller is. Guests are identified only by the
// X-Guest-Id header and own data under "guest:<id>".
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
	Role    string
	Guest   bool
}

// publicPrefixes are reachable without a token or guest header.
var publicPrefixes = []string{
	"/api/v1/auth/",
	"/api/v1/health",
	"/api/v1/jobs",
	"/metrics",
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Auth resolves the caller from a bearer token or, failing that, a guest
// header. In production guest ids must be UUIDs.
func Auth(env string) gin.HandlerFunc {
	strictGuests := env == "production" || env == "prod"
	unauthorized := func(c *gin.Context, msg string) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", msg, nil)
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		bearer := strings.TrimSpace(c.GetHeader("Authorization"))
		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))

		switch {
		case bearer != "":
			token, ok := strings.CutPrefix(bearer, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(c, "missing or invalid token")
				return
			}
			claims, err := auth.VerifyJWT(strings.TrimSpace(token))
			if err != nil {
				unauthorized(c, "missing or invalid token")
				return
			}
			SetIdentity(c, Identity{
				UserID:  claims.Sub,
				Email:   claims.Email,
				Name:    claims.Name,
				Picture: claims.Picture,
				Role:    claims.Role,
			})
		case guestID != "":
			if len(guestID) > 128 {
				unauthorized(c, "invalid guest id")
				return
			}
			if _, err := uuid.Parse(guestID); strictGuests && err != nil {
				unauthorized(c, "invalid guest id")
				return
			}
			SetIdentity(c, Identity{UserID: "guest:" + guestID, Guest: true})
		case isPublicPath(c.Request.URL.Path):
		default:
			unauthorized(c, "Missing identity")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdminFromContext(c) {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
			return
		}
		c.Next()
	}
}

// RequireUser rejects guests and anonymous callers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := IdentityFromContext(c); id.UserID == "" || id.Guest {
			respond.Error(c, http.StatusUnauthorized, "login_required", "login required", nil)
			return
		}
		c.Next()
	}
}

// SetIdentity stores the caller on the request. Tests use it to skip token handling.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// IdentityFromContext returns the caller, or the zero Identity for anonymous requests.
func IdentityFromContext(c *gin.Context) Identity {
	if c == nil {
		return Identity{}
	}
	v, _ := c.Get(identityKey)
	id, _ := v.(Identity)
	return id
}

func UserIDFromContext(c *gin.Context) string      { return IdentityFromContext(c).UserID }
func UserEmailFromContext(c *gin.Context) string   { return IdentityFromContext(c).Email }
func UserNameFromContext(c *gin.Context) string    { return IdentityFromContext(c).Name }
func UserPictureFromContext(c *gin.Context) string { return IdentityFromContext(c).Picture }
func IsGuestFromContext(c *gin.Context) bool       { return IdentityFromContext(c).Guest }
func IsAdminFromContext(c *gin.Context) bool       { return IdentityFromContext(c).Role == auth.RoleAdmin }
