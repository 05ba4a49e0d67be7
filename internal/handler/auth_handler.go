package handler

import (
	"net/http"

	"backend/internal/auth"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	tokens      *auth.TokenManager
	authMw      *middleware.AuthMiddleware
}

// NewAuthHandler sets up the routing dependencies for session endpoints
func NewAuthHandler(authService service.AuthService, tokens *auth.TokenManager, authMw *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, authMw: authMw}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/auth")
	{
		group.POST("/login", h.Login)
		group.POST("/logout", h.Logout)
		group.GET("/token-status", h.TokenStatus)
		group.POST("/refresh", h.Refresh)

		group.GET("/me", h.authMw.RequireAuth(), h.Me)
		group.GET("/test-permission/:name", h.authMw.RequireAuth(), h.TestPermission)
	}
}

// Login authenticates a user and issues a session artifact
// @Summary      Login user
// @Description  Authenticates a user by username and password, setting the session cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.IdentityResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	identity, token, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	middleware.SetSessionCookie(c, token, int(h.tokens.Lifetime().Seconds()))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, identity))
}

// Logout invalidates the session artifact
// @Summary      Logout user
// @Description  Clears the session cookie, invalidating the artifact immediately
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// Me returns the current authenticated principal
// @Summary      Get current user
// @Description  Returns the authenticated principal with roles and live permissions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.IdentityResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, err := h.authService.Me(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, identity))
}

// TokenStatus introspects the current session without mutating it
// @Summary      Session status
// @Description  Reports authentication state, expiry and the expiring-soon flag
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TokenStatusResponse}
// @Router       /api/auth/token-status [get]
func (h *AuthHandler) TokenStatus(c *gin.Context) {
	status := h.authService.TokenStatus(middleware.TokenFromRequest(c))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// Refresh re-issues the session artifact with a fresh expiry
// @Summary      Refresh session
// @Description  Re-issues the artifact with the principal's current roles and a new expiry
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TokenStatusResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	status, token, err := h.authService.Refresh(c.Request.Context(), middleware.TokenFromRequest(c))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	middleware.SetSessionCookie(c, token, int(h.tokens.Lifetime().Seconds()))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// TestPermission is a self-service probe for any named capability
// @Summary      Test a permission
// @Description  Checks whether the caller holds the named capability without attempting the protected action
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Permission name"
// @Success      200   {object}  response.Response{data=service.TestPermissionResponse}
// @Failure      401   {object}  response.Response
// @Router       /api/auth/test-permission/{name} [get]
func (h *AuthHandler) TestPermission(c *gin.Context) {
	result, err := h.authService.TestPermission(
		c.Request.Context(),
		middleware.MustUserID(c),
		middleware.CurrentUsername(c),
		c.Param("name"),
	)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
