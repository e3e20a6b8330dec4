package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/softwareparlat/main/internal/shared/apperr"
)

const ctxKeyUser = "auth_user"

const (
	RoleAdmin   = "admin"
	RolePartner = "partner"
	RoleClient  = "client"
)

// Claims is the bearer token payload issued by the account service.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type AuthUser struct {
	ID    string
	Email string
	Role  string
}

// Authenticate parses an optional "Authorization: Bearer <jwt>" header (HS256)
// and stores the user on the context. Missing or bad tokens leave the request
// anonymous; RequireAuth decides.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		claims, err := ParseToken(secret, raw)
		if err == nil {
			c.Set(ctxKeyUser, AuthUser{ID: claims.UserID, Email: claims.Email, Role: claims.Role})
		}
		c.Next()
	}
}

func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IssueToken signs a token for the given user. Used by tools and tests; the
// account service issues production tokens with the same secret.
func IssueToken(secret []byte, u AuthUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func CurrentUser(c *gin.Context) (AuthUser, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return AuthUser{}, false
	}
	u, ok := v.(AuthUser)
	return u, ok
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			Fail(c, apperr.UnauthorizedErr("authentication required"))
			return
		}
		c.Next()
	}
}

// RequireRole admits authenticated users holding any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			Fail(c, apperr.UnauthorizedErr("authentication required"))
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		Fail(c, apperr.ForbiddenErr("forbidden"))
	}
}
