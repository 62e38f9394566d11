package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Extras  string `json:"extras"`
}

func (e Error) Error() string {
	return e.Extras
}

func NewError(success bool, code int, message string) Error {
	return Error{
		Success: success,
		Code:    code,
		Extras:  message,
	}
}

// ErrorHandler renders the last error attached to the context. Errors that
// are not an Error are reported as internal server errors.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		var apiErr Error
		if errors.As(last.Err, &apiErr) {
			ErrorResponse(c, apiErr.Code, apiErr.Extras)
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, last.Err.Error())
	}
}
