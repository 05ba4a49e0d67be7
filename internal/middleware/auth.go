package middleware

import (
	"net/http"
	"os"
	"strings"

	"backend/internal/auth"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys populated by the auth middleware
const (
	CtxUserID       = "userID"
	CtxUsername     = "username"
	CtxRoles        = "userRoles"
	CtxSessionToken = "sessionToken"
)

const sessionCookieName = "session_token"

// GetJWTSecret resolves the signing secret from the environment
func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only, DO NOT use in production
	}
	return []byte(secret)
}

// SetSessionCookie sets the session artifact as an HttpOnly cookie
func SetSessionCookie(c *gin.Context, token string, maxAge int) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", secure, true)
}

// ClearSessionCookie removes the session cookie, invalidating the artifact at
// the transport boundary
func ClearSessionCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(sessionCookieName, "", -1, "/", "", secure, true)
}

// TokenFromRequest extracts the session artifact from the cookie, falling back
// to a Bearer Authorization header
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(sessionCookieName); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// AuthMiddleware validates session artifacts and gates requests on either
// coarse role claims or fine-grained, freshly resolved permissions
type AuthMiddleware struct {
	tokens      *auth.TokenManager
	permissions service.PermissionService
}

func NewAuthMiddleware(tokens *auth.TokenManager, permissions service.PermissionService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, permissions: permissions}
}

// authenticate parses the session artifact and loads identity into the gin
// context. It reports false after writing the 401 response on failure.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	token := TokenFromRequest(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return false
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired session"))
		return false
	}

	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session claims"))
		return false
	}

	c.Set(CtxUserID, userID)
	c.Set(CtxUsername, claims.Username)
	c.Set(CtxRoles, claims.Roles)
	c.Set(CtxSessionToken, token)
	return true
}

// RequireAuth validates the session artifact without any capability check
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole gates on the coarse role names carried in the session claims.
// Cheap, but stale until the next refresh; use RequirePermission for
// decisions that must track the live authority graph.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}

		roles, _ := c.Get(CtxRoles)
		userRoles, _ := roles.([]string)
		for _, held := range userRoles {
			for _, allowed := range allowedRoles {
				if held == allowed {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient role"))
	}
}

// RequirePermission re-resolves the user → role → permission graph on every
// request. Nothing is cached: revoking a permission from a role takes effect
// on the next request without forcing affected users to log out.
func (m *AuthMiddleware) RequirePermission(permissionName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}

		userID := MustUserID(c)
		allowed, err := m.permissions.Authorize(c.Request.Context(), userID, permissionName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+permissionName+"'"))
			return
		}

		c.Next()
	}
}

// MustUserID returns the authenticated principal id set by the middleware.
// Only valid on routes behind RequireAuth/RequireRole/RequirePermission.
func MustUserID(c *gin.Context) uint {
	id, _ := c.Get(CtxUserID)
	userID, _ := id.(uint)
	return userID
}

// CurrentUsername returns the authenticated username from the context
func CurrentUsername(c *gin.Context) string {
	name, _ := c.Get(CtxUsername)
	username, _ := name.(string)
	return username
}
