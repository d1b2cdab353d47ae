package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/reminder"
)

type createReminderRequest struct {
	DeviceID           int64   `json:"device_id"`
	DeviceMAC          string  `json:"device_mac"`
	RemoteID           *string `json:"remote_id"`
	Content            string  `json:"content"`
	ReminderType       string  `json:"reminder_type"`
	ScheduledTime      string  `json:"scheduled_time"`
	ScheduledTimestamp *int64  `json:"scheduled_timestamp"`
	SkipHolidays       bool    `json:"skip_holidays"`
}

type updateReminderRequest struct {
	Content       *string `json:"content"`
	ScheduledTime *string `json:"scheduled_time"`
	SkipHolidays  *bool   `json:"skip_holidays"`
	Status        *string `json:"status"`
}

// bindJSON decodes the request body. Optional bodies may be empty.
func bindJSON(c *gin.Context, v any, optional bool) error {
	if err := c.ShouldBindJSON(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func (h *handler) createReminder(c *gin.Context) {
	var req createReminderRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Reminders.Create(c.Request.Context(), reminder.CreateParams{
		DeviceID:           req.DeviceID,
		DeviceMAC:          req.DeviceMAC,
		RemoteID:           req.RemoteID,
		Content:            req.Content,
		Type:               reminder.Type(req.ReminderType),
		ScheduledTime:      req.ScheduledTime,
		ScheduledTimestamp: req.ScheduledTimestamp,
		SkipHolidays:       req.SkipHolidays,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "reminder created", res)
}

func (h *handler) listReminders(c *gin.Context) {
	f := reminder.ListFilter{
		DeviceMAC: c.Query("device_mac"),
		Status:    c.Query("status"),
	}

	var err error
	var deviceID int
	if deviceID, err = queryInt(c, "device_id"); err != nil {
		h.fail(c, err)
		return
	}
	f.DeviceID = int64(deviceID)
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		h.fail(c, err)
		return
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Reminders.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *handler) getReminder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	d, err := h.Reminders.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, d)
}

func (h *handler) updateReminder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req updateReminderRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}

	fields := reminder.UpdateFields{
		Content:       req.Content,
		ScheduledTime: req.ScheduledTime,
		SkipHolidays:  req.SkipHolidays,
	}
	if req.Status != nil {
		st := reminder.Status(*req.Status)
		fields.Status = &st
	}

	r, err := h.Reminders.Update(c.Request.Context(), id, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "reminder updated", r)
}

func (h *handler) deleteReminder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.Reminders.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "reminder deleted", nil)
}

func (h *handler) completeReminder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req struct {
		Notes *string `json:"notes"`
	}
	if err := bindJSON(c, &req, true); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.Reminders.Complete(c.Request.Context(), id, req.Notes); err != nil {
		h.fail(c, err)
		return
	}
	h.finished(c, id, "reminder completed")
}

func (h *handler) cancelReminder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.Reminders.Cancel(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.finished(c, id, "reminder cancelled")
}

func (h *handler) finished(c *gin.Context, id int64, message string) {
	d, err := h.Reminders.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, message, d)
}

func (h *handler) reminderStats(c *gin.Context) {
	st, err := h.Reminders.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, st)
}
