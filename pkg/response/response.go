package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
)

// ErrorBody is the JSON payload written for failed API calls.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// OK writes payload as JSON with status 200.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// JSON writes payload as-is with the given status.
func JSON(c *gin.Context, statusCode int, payload any) {
	c.JSON(statusCode, payload)
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	appErr := resolve(err)
	c.JSON(appErr.StatusCode, ErrorBody{
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}

// Status returns the HTTP status that Error would write for err.
func Status(err error) int {
	return resolve(err).StatusCode
}

// HTML writes a rendered document with the UTF-8 content type.
func HTML(c *gin.Context, statusCode int, body []byte) {
	c.Data(statusCode, "text/html; charset=utf-8", body)
}

func resolve(err error) *appErrors.AppError {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	if appErr.StatusCode == 0 {
		appErr = appErr.WithMessage(appErr.Message)
		appErr.StatusCode = http.StatusInternalServerError
	}
	return appErr
}
