package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/response"
	"vidnest/accounts/internal/service"
)

const refreshTokenCookie = "refreshToken"

type authResponse struct {
	User         *models.UserView `json:"user,omitempty"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

// RegisterUser expects multipart/form-data with the account fields, a
// required avatar file and an optional coverImage file.
func (h HandlerSet) RegisterUser(c *gin.Context) {
	avatar, closeAvatar := formUpload(c, "avatar")
	defer closeAvatar()
	cover, closeCover := formUpload(c, "coverImage")
	defer closeCover()

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username:   c.PostForm("username"),
		Email:      c.PostForm("email"),
		FullName:   c.PostForm("fullName"),
		Password:   c.PostForm("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusCreated, user.View(), "User registered successfully")
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Fail(c, service.ErrValidationFailed)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.setSessionCookies(c, result.AccessToken, result.RefreshToken)
	view := result.User.View()
	response.OK(c, http.StatusOK, authResponse{
		User:         &view,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "User logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// RefreshToken reads the token from the refreshToken cookie, falling back
// to the request body for clients that do not keep cookies.
func (h HandlerSet) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if token == "" {
		var req refreshRequest
		if c.Request.ContentLength != 0 {
			_ = c.ShouldBind(&req)
		}
		token = req.RefreshToken
	}

	result, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.setSessionCookies(c, result.AccessToken, result.RefreshToken)
	response.OK(c, http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "Access token refreshed")
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), user.ID); err != nil {
		response.Fail(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.OK(c, http.StatusOK, gin.H{}, "User logged out")
}
