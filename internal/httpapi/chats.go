package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/chat"
)

func (h *handler) batchCreateChats(c *gin.Context) {
	mac := strings.TrimSpace(c.GetHeader("Device-Id"))
	if mac == "" {
		h.fail(c, badRequest("missing Device-Id header"))
		return
	}

	var req struct {
		Messages []chat.Incoming `json:"messages"`
	}
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}
	if req.Messages == nil {
		h.fail(c, chat.ErrNoMessages)
		return
	}

	res, err := h.Chats.BatchCreate(c.Request.Context(), mac, req.Messages)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

// listChats serves a device's messages for ?date= when given, otherwise the
// most recent ones.
func (h *handler) listChats(c *gin.Context) {
	mac := c.Param("mac")
	if date := c.Query("date"); date != "" {
		h.writeDaily(c, mac, date)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		h.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.fail(c, err)
		return
	}

	msgs, err := h.Chats.Recent(c.Request.Context(), mac, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"device_mac": mac, "count": len(msgs), "chats": msgs})
}

func (h *handler) dailyChats(c *gin.Context) {
	h.writeDaily(c, c.Param("mac"), c.Param("date"))
}

func (h *handler) writeDaily(c *gin.Context, mac, date string) {
	msgs, err := h.Chats.Daily(c.Request.Context(), mac, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"device_mac": mac, "date": date, "count": len(msgs), "chats": msgs})
}

func (h *handler) chatStats(c *gin.Context) {
	st, err := h.Chats.Stats(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, st)
}
