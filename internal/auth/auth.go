// Package auth identifies chat viewers and issues their CSRF tokens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"eventchat/internal/model"
)

// CookieName is the cookie a browser carries the viewer token in
const CookieName = "chat_token"

// ErrInvalidToken is returned for tokens that fail verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims of a viewer token
type Claims struct {
	Name  string `json:"name,omitempty"`
	Staff bool   `json:"staff,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies viewer tokens.
type Authenticator struct {
	secret []byte
}

// New creates an Authenticator with an HMAC secret
func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for v, valid for ttl (forever when ttl is zero).
func (a *Authenticator) Issue(v model.Viewer, ttl time.Duration) (string, error) {
	if !v.Authenticated() {
		return "", fmt.Errorf("issue token: %w: anonymous viewer", ErrInvalidToken)
	}
	now := time.Now()
	claims := Claims{
		Name:  v.DisplayName,
		Staff: v.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  v.Username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token and returns its viewer.
func (a *Authenticator) Parse(token string) (model.Viewer, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return model.Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.Viewer{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return model.Viewer{
		Username:    claims.Subject,
		DisplayName: claims.Name,
		Staff:       claims.Staff,
	}, nil
}

// FromRequest returns the viewer of r. Missing or invalid tokens yield the
// anonymous viewer.
func (a *Authenticator) FromRequest(r *http.Request) model.Viewer {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		return model.Viewer{}
	}
	v, err := a.Parse(token)
	if err != nil {
		return model.Viewer{}
	}
	return v
}

// CSRFToken is the form token expected from v.
func (a *Authenticator) CSRFToken(v model.Viewer) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte("csrf:" + v.Username))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckCSRF reports whether token is the CSRF token of v
func (a *Authenticator) CheckCSRF(v model.Viewer, token string) bool {
	return hmac.Equal([]byte(a.CSRFToken(v)), []byte(token))
}
