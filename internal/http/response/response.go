package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
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

// RespondServiceError maps service and aggregate failures onto the error
// envelope. Anything unrecognized is a 500 with the cause logged, not shown.
func RespondServiceError(c *gin.Context, log *logger.Logger, err error) {
	status, code, msg := Classify(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// Classify returns the HTTP status, error code and public message for err.
func Classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "unknown error"
	}
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		msg := ae.Error()
		if status >= http.StatusInternalServerError && ae.Err == nil {
			msg = http.StatusText(status)
		}
		return status, ae.Code, msg
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return StatusForCode(aggErr.Code), string(aggErr.Code), aggErr.PublicMessage()
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation, domainagg.CodePreconditionFailed:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
