// Package httpapi exposes the companion services over HTTP with gin.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/auth"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/holiday"
	"github.com/notexe/companion/internal/metrics"
	"github.com/notexe/companion/internal/reminder"
	"github.com/notexe/companion/internal/report"
)

// Deps are the services the router serves.
type Deps struct {
	Reminders   *reminder.Service
	Devices     *device.Store
	Users       *auth.Store
	Chats       *chat.Service
	Reports     *report.Service
	Holidays    *holiday.Calendar
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	Logger      *logrus.Logger
	CORSOrigins []string
}

type handler struct {
	Deps
	log *logrus.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem(nil)
	}
	h := &handler{Deps: d, log: d.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(d.Logger), observe(d.Metrics), cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", h.health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")

	reminders := api.Group("/reminders")
	reminders.POST("", h.createReminder)
	reminders.GET("", h.listReminders)
	reminders.GET("/stats", h.reminderStats)
	reminders.GET("/:id", h.getReminder)
	reminders.PUT("/:id", h.updateReminder)
	reminders.DELETE("/:id", h.deleteReminder)
	reminders.POST("/:id/complete", h.completeReminder)
	reminders.POST("/:id/cancel", h.cancelReminder)

	api.GET("/devices", h.listAllDevices)

	user := api.Group("/user", auth.Middleware(d.Users))
	user.GET("/devices", h.listUserDevices)
	user.POST("/devices/add", h.addUserDevice)
	user.POST("/devices/unbind", h.unbindUserDevice)
	user.POST("/devices/set-primary", h.setPrimaryDevice)

	chats := api.Group("/chats")
	chats.POST("/batch", h.batchCreateChats)
	chats.GET("/stats", h.chatStats)
	chats.GET("/:mac", h.listChats)
	chats.GET("/:mac/:date", h.dailyChats)

	reports := api.Group("/reports")
	reports.POST("/generate", h.generateReport)
	reports.GET("", h.listReports)
	reports.GET("/:mac/:date", h.reportHTML)
	reports.GET("/:mac/:date/json", h.reportJSON)

	api.GET("/holidays", h.listHolidays)
	api.GET("/holidays/:date", h.checkHoliday)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "Device-Id", requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.Clock.Now().Format(time.RFC3339),
	})
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// pathID reads the :id path parameter.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", c.Param("id"))
	}
	return id, nil
}
