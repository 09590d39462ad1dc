package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vidnest/accounts/internal/config"
	"vidnest/accounts/internal/middleware"
	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/response"
	"vidnest/accounts/internal/service"
)

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	accounts *service.AccountService
	checks   []HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, auth *service.AuthService, accounts *service.AccountService, checks ...HealthCheck) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		accounts: accounts,
		checks:   checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	users := router.Group("/v1/users")
	{
		users.POST("/register", h.RegisterUser)
		users.POST("/login", h.Login)
		users.POST("/refresh-token", h.RefreshToken)

		protected := users.Group("")
		protected.Use(middleware.Auth(h.auth))
		protected.POST("/logout", h.Logout)
		protected.POST("/change-password", h.ChangePassword)
		protected.GET("/current-user", h.CurrentUser)
		protected.PATCH("/update-account", h.UpdateAccount)
		protected.PATCH("/avatar", h.UpdateAvatar)
		protected.PATCH("/cover-image", h.UpdateCoverImage)
	}
}

// currentUser fetches the user attached by middleware.Auth. Routes using it
// are always behind that middleware, so a miss is a wiring bug.
func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, service.ErrTokenMissing)
		return models.User{}, false
	}
	return user, true
}

func (h HandlerSet) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	sec := h.cfg.Security
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, accessToken, int(sec.JWTAccessTTL.Seconds()), "/", sec.CookieDomain, sec.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, refreshToken, int(sec.JWTRefreshTTL.Seconds()), "/", sec.CookieDomain, sec.CookieSecure, true)
}

func (h HandlerSet) clearSessionCookies(c *gin.Context) {
	sec := h.cfg.Security
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", sec.CookieDomain, sec.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", sec.CookieDomain, sec.CookieSecure, true)
}
