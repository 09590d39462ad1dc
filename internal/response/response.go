package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidnest/accounts/internal/service"
)

// Envelope is the body of every API response.
type Envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func OK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		Code:    status,
		Data:    data,
		Message: message,
		Success: status < http.StatusBadRequest,
	})
}

// Fail writes err as an error envelope. Errors outside the service
// taxonomy become a bare 500 so internals never reach the client.
func Fail(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, body)
}

// Abort is Fail for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, Envelope) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = service.ErrPersistFailed
	}
	status := Status(svcErr)
	return status, Envelope{
		Code:    status,
		Data:    nil,
		Message: svcErr.Message,
		Success: false,
		Error:   string(svcErr.Reason),
	}
}

// Status maps a service error onto an HTTP status code.
func Status(err *service.Error) int {
	switch err.Reason {
	case service.ReasonUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case service.ReasonFileTooLarge:
		return http.StatusRequestEntityTooLarge
	}

	switch err.Kind {
	case service.KindValidationFailed:
		return http.StatusBadRequest
	case service.KindDuplicateIdentity:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
