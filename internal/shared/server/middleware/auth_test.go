package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/shared/auth"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.OPTIONS("/api/v1/documents/current", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthPublicPathWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/documents", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected public path 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	router := gin.New()
	router.Use(Auth("dev"))
	router.DELETE("/api/v1/jobs/:id", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	userToken, err := auth.SignJWT(auth.Claims{Sub: "user-1", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("sign user token: %v", err)
	}
	adminToken, err := auth.SignJWT(auth.Claims{Sub: "admin:a@example.com", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}

	tests := []struct {
		name   string
		header func(*http.Request)
		want   int
	}{
		{"guest", func(r *http.Request) { r.Header.Set("X-Guest-Id", "g-1") }, http.StatusForbidden},
		{"user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userToken) }, http.StatusForbidden},
		{"admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminToken) }, http.StatusNoContent},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/job-1", nil)
			tt.header(req)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
		})
	}
}

func TestAuthGuestIDsStrictInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		env, guest string
		want       int
	}{
		{"dev", "g-1", http.StatusOK},
		{"production", "g-1", http.StatusUnauthorized},
		{"production", "11111111-1111-1111-1111-111111111111", http.StatusOK},
	}
	for _, tc := range cases {
		router := gin.New()
		router.Use(Auth(tc.env))
		router.GET("/api/v1/documents", func(c *gin.Context) {
			id := IdentityFromContext(c)
			if !id.Guest || id.UserID != "guest:"+tc.guest {
				t.Errorf("unexpected identity %+v", id)
			}
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		req.Header.Set("X-Guest-Id", tc.guest)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.env, tc.guest, tc.want, resp.Code)
		}
	}
}

func TestAuthTokenWinsOverGuestHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := auth.SignJWT(auth.Claims{Sub: "user-1", Name: "Ada"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	var got Identity
	router := gin.New()
	router.Use(Auth("dev"))
	router.POST("/api/v1/account/claim-guest", func(c *gin.Context) {
		got = IdentityFromContext(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Guest-Id", "g-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != "user-1" || got.Guest || got.Name != "Ada" {
		t.Fatalf("unexpected identity %+v", got)
	}
}
