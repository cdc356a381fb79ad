// Package response holds the grading API's wire envelopes: success bodies
// pass through as-is, every failure goes out as an ErrorEnvelope with a
// machine-readable code.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. A nil err keeps the code but
// reports a generic message, for failures with nothing safe to echo back.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated is for operations that append a new ledger record.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
