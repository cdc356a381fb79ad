package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
)

// StatusForCode maps an aggregate error code onto the HTTP status the API
// reports for it. Unknown codes fall through to 500 so callers never leak a
// misleading success status.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed, domainagg.CodePolicy:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError translates an aggregate error into the standard error
// envelope. Internal-class failures get a generic message so storage details
// never reach API clients; the full error stays in the server logs.
func RespondDomainError(c *gin.Context, err error) {
	code := domainagg.CodeOf(err)
	status := StatusForCode(code)
	if status == http.StatusInternalServerError {
		c.JSON(status, ErrorEnvelope{
			Error: APIError{
				Message: "internal error",
				Code:    string(code),
			},
		})
		return
	}
	RespondError(c, status, string(code), err)
}
