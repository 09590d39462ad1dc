package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/response"
)

const (
	AccessTokenCookie = "accessToken"
	currentUserKey    = "current_user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// Auth resolves the access token from the accessToken cookie or a Bearer
// header and attaches the user to the context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, _ := c.Cookie(AccessTokenCookie)
		if tokenStr == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				tokenStr = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}
		}

		user, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
