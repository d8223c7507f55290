package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// RoleAdmin marks tokens issued through the admin login.
const RoleAdmin = "admin"

// TokenTTL is the lifetime given to tokens signed without an explicit expiry.
const TokenTTL = 24 * time.Hour

// clockSkew tolerates small drift between issuing and verifying hosts.
const clockSkew = 30 * time.Second

// Claims is the identity carried by a session token.
type Claims struct {
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role,omitempty"`
	Exp     int64  `json:"exp,omitempty"`
	Iat     int64  `json:"iat,omitempty"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

var (
	errMissingSecret = errors.New("jwt secret not configured")
	errMissingSub    = errors.New("sub is required")

	// ErrInvalidToken covers every verification failure so callers cannot
	// distinguish a bad signature from an expired token.
	ErrInvalidToken = errors.New("invalid token")
)

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var hs256Header = mustSegment(tokenHeader{Alg: "HS256", Typ: "JWT"})

// now is swapped in tests.
var now = time.Now

// SignJWT returns an HS256 token for claims, filling iat and exp when unset.
func SignJWT(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errMissingSub
	}
	secret, err := signingSecret()
	if err != nil {
		return "", err
	}

	issued := now().UTC()
	if claims.Iat == 0 {
		claims.Iat = issued.Unix()
	}
	if claims.Exp == 0 {
		claims.Exp = issued.Add(TokenTTL).Unix()
	}

	payload, err := encodeSegment(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	unsigned := hs256Header + "." + payload
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(mac(unsigned, secret)), nil
}

// VerifyJWT checks signature, algorithm and expiry and returns the claims.
func VerifyJWT(token string) (Claims, error) {
	secret, err := signingSecret()
	if err != nil {
		return Claims{}, err
	}

	head, payload, sig, ok := splitToken(token)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, mac(head+"."+payload, secret)) {
		return Claims{}, ErrInvalidToken
	}

	var hdr tokenHeader
	if err := decodeSegment(head, &hdr); err != nil || hdr.Alg != "HS256" {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := decodeSegment(payload, &claims); err != nil || claims.Sub == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Exp > 0 && now().UTC().Add(-clockSkew).Unix() > claims.Exp {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func splitToken(token string) (head, payload, sig string, ok bool) {
	head, rest, found := strings.Cut(strings.TrimSpace(token), ".")
	if !found {
		return "", "", "", false
	}
	payload, sig, found = strings.Cut(rest, ".")
	if !found || strings.Contains(sig, ".") || head == "" || payload == "" || sig == "" {
		return "", "", "", false
	}
	return head, payload, sig, true
}

func mac(input string, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(input))
	return h.Sum(nil)
}

func encodeSegment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func mustSegment(v any) string {
	s, err := encodeSegment(v)
	if err != nil {
		panic(err)
	}
	return s
}

func decodeSegment(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// signingSecret reads JWT_SECRET. Outside production a fixed dev secret is used
// when it is unset.
func signingSecret() ([]byte, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret != "" {
		return []byte(secret), nil
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))) {
	case "production", "prod":
		return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
	}
	return []byte("dev-secret"), nil
}
