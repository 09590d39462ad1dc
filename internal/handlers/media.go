package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidnest/accounts/internal/response"
	"vidnest/accounts/internal/service"
)

// formUpload opens the multipart file in field. A missing file yields nil;
// the returned func always closes whatever was opened.
func formUpload(c *gin.Context, field string) (*service.UploadFile, func()) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}
	}
	return &service.UploadFile{
		Content:     file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, func() { _ = file.Close() }
}

func (h HandlerSet) UpdateAvatar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	file, closeFile := formUpload(c, "avatar")
	defer closeFile()

	updated, err := h.accounts.UpdateAvatar(c.Request.Context(), user, file)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusOK, updated.View(), "Avatar image updated successfully")
}

func (h HandlerSet) UpdateCoverImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	file, closeFile := formUpload(c, "coverImage")
	defer closeFile()

	updated, err := h.accounts.UpdateCoverImage(c.Request.Context(), user, file)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusOK, updated.View(), "Cover image updated successfully")
}
