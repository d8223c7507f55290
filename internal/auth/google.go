package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "careerpilot-backend/internal/shared/auth"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/users"
)

// UserUpserter persists the OAuth identity and returns the stored account.
type UserUpserter interface {
	UpsertFromAuth(ctx context.Context, user users.User) (users.User, error)
}

// GoogleService runs the authorization-code flow with PKCE and hands the UI a
// session token on success.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	pending     *pendingLogins
	users       UserUpserter
}

// NewGoogleService builds a GoogleService. A nil upserter skips persistence and
// tokens carry the raw Google subject.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, upserter UserUpserter) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: googleUserInfoURL,
		pending:     newPendingLogins(5 * time.Minute),
		users:       upserter,
	}
}

func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	c := s.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}
	state, verifier := s.pending.begin(time.Now())
	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	))
}

func (s *GoogleService) callback(c *gin.Context) {
	// The user declined consent or Google rejected the request; let the UI explain.
	if reason := c.Query("error"); reason != "" {
		telemetry.Warn("auth.google.denied", map[string]any{"reason": reason})
		s.redirectUI(c, url.Values{"error": {reason}})
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	verifier, ok := s.pending.finish(state, time.Now())
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}
	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.google.profile_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	claims, err := s.claimsFor(ctx, profile)
	if err != nil {
		respond.Internal(c, "failed to save user", err)
		return
	}
	session, err := sharedauth.SignJWT(claims)
	if err != nil {
		respond.Internal(c, "failed to issue token", err)
		return
	}
	telemetry.Info("auth.google.login", map[string]any{"user_id": claims.Sub})
	s.redirectUI(c, url.Values{"token": {session}})
}

// claimsFor links the Google identity to a stored user when persistence is
// available. An account already registered under the same email keeps its ID.
func (s *GoogleService) claimsFor(ctx context.Context, p googleProfile) (sharedauth.Claims, error) {
	claims := sharedauth.Claims{
		Sub:     "google:" + p.subject(),
		Email:   p.Email,
		Name:    p.Name,
		Picture: p.Picture,
	}
	if s.users == nil || p.Email == "" {
		return claims, nil
	}
	stored, err := s.users.UpsertFromAuth(ctx, users.User{
		ID:         claims.Sub,
		Email:      p.Email,
		FullName:   p.Name,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		PictureURL: p.Picture,
	})
	if err != nil {
		return sharedauth.Claims{}, err
	}
	claims.Sub = stored.ID
	return claims, nil
}

func (s *GoogleService) redirectUI(c *gin.Context, params url.Values) {
	target, err := withQuery(s.uiRedirect, params)
	if err != nil {
		respond.Internal(c, "failed to redirect", err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func withQuery(rawURL string, params url.Values) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
