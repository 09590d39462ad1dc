package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidnest/accounts/internal/response"
	"vidnest/accounts/internal/service"
)

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" form:"oldPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Fail(c, service.ErrValidationFailed)
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), user.ID, service.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (h HandlerSet) CurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	response.OK(c, http.StatusOK, user.View(), "User fetched successfully")
}

type updateAccountRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
}

func (h HandlerSet) UpdateAccount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Fail(c, service.ErrMissingFields)
		return
	}

	updated, err := h.accounts.UpdateProfile(c.Request.Context(), user.ID, service.UpdateProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusOK, updated.View(), "Account details updated successfully")
}
