package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/auth"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/reminder"
	"github.com/notexe/companion/internal/report"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// errBadRequest marks malformed input found by the handlers themselves.
var errBadRequest = errors.New("bad request")

type inputError struct{ msg string }

func (e inputError) Error() string { return e.msg }

func (e inputError) Is(target error) bool { return target == errBadRequest }

func badRequest(format string, args ...any) error {
	return inputError{msg: fmt.Sprintf(format, args...)}
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data, Message: message})
}

// fail maps err to a status code and writes the error envelope. Unmapped
// errors are logged and hidden behind a generic message.
func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		requestLogger(c, h.log).WithError(err).Error("request failed")
		msg = "internal server error"
	}
	c.JSON(status, APIResponse{Success: false, Error: msg})
}

var errorStatus = []struct {
	err    error
	status int
}{
	{errBadRequest, http.StatusBadRequest},
	{reminder.ErrInvalidTimeOfDay, http.StatusBadRequest},
	{reminder.ErrInvalidType, http.StatusBadRequest},
	{reminder.ErrInvalidStatus, http.StatusBadRequest},
	{reminder.ErrContentRequired, http.StatusBadRequest},
	{reminder.ErrDeviceRequired, http.StatusBadRequest},
	{reminder.ErrNoFieldsToUpdate, http.StatusBadRequest},
	{device.ErrInvalidMAC, http.StatusBadRequest},
	{device.ErrNameRequired, http.StatusBadRequest},
	{device.ErrDeviceIDRequired, http.StatusBadRequest},
	{chat.ErrNoMessages, http.StatusBadRequest},
	{chat.ErrInvalidDate, http.StatusBadRequest},
	{auth.ErrNameRequired, http.StatusBadRequest},

	{auth.ErrMissingToken, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},

	{device.ErrNotOwner, http.StatusForbidden},
	{device.ErrNotLinked, http.StatusForbidden},

	{device.ErrDeviceNotFound, http.StatusNotFound},
	{reminder.ErrReminderNotFound, http.StatusNotFound},
	{report.ErrReportNotFound, http.StatusNotFound},
	{report.ErrNoConversations, http.StatusNotFound},

	{reminder.ErrInvalidTransition, http.StatusConflict},

	{report.ErrGenerationFailed, http.StatusBadGateway},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
