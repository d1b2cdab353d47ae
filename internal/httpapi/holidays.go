package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/chat"
)

func (h *handler) listHolidays(c *gin.Context) {
	year, err := queryInt(c, "year")
	if err != nil {
		h.fail(c, err)
		return
	}
	if year == 0 {
		year = h.Clock.Now().Year()
	}

	days := h.Holidays.ForYear(year)
	respond(c, http.StatusOK, gin.H{"year": year, "holidays": days, "count": len(days)})
}

func (h *handler) checkHoliday(c *gin.Context) {
	date := c.Param("date")
	day, err := chat.ParseDate(date, h.Clock.Now().Location())
	if err != nil {
		h.fail(c, err)
		return
	}

	name, ok := h.Holidays.Lookup(day)
	respond(c, http.StatusOK, gin.H{"date": date, "is_holiday": ok, "name": name})
}
