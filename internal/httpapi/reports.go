package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/report"
)

func (h *handler) generateReport(c *gin.Context) {
	var req struct {
		DeviceMAC string `json:"device_mac"`
		Date      string `json:"date"`
	}
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}
	if req.DeviceMAC == "" {
		h.fail(c, badRequest("device_mac is required"))
		return
	}
	if req.Date == "" {
		req.Date = h.Clock.Now().Format(time.DateOnly)
	}

	res, err := h.Reports.Generate(c.Request.Context(), req.DeviceMAC, req.Date)
	if err != nil {
		if errors.Is(err, report.ErrGenerationFailed) && res != nil {
			c.JSON(http.StatusBadGateway, APIResponse{Success: false, Data: res, Error: err.Error()})
			return
		}
		h.fail(c, err)
		return
	}

	if res.AlreadyGenerated {
		respondMessage(c, http.StatusOK, "report already generated", res)
		return
	}
	respondMessage(c, http.StatusCreated, "report generated", res)
}

func (h *handler) listReports(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.fail(c, err)
		return
	}

	reports, err := h.Reports.List(c.Request.Context(), c.Query("device_mac"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (h *handler) loadReport(c *gin.Context) (*report.Report, bool) {
	date := c.Param("date")
	if _, err := chat.ParseDate(date, time.UTC); err != nil {
		h.fail(c, err)
		return nil, false
	}

	r, err := h.Reports.Get(c.Request.Context(), c.Param("mac"), date)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return r, true
}

func (h *handler) reportHTML(c *gin.Context) {
	r, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(r.HTMLContent))
}

func (h *handler) reportJSON(c *gin.Context) {
	r, ok := h.loadReport(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, r)
}
