package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notexe/companion/internal/auth"
	"github.com/notexe/companion/internal/device"
)

type deviceIDRequest struct {
	DeviceID int64 `json:"device_id"`
}

// currentUser is only called behind auth.Middleware.
func currentUser(c *gin.Context) *auth.User {
	u, _ := auth.CurrentUser(c)
	return u
}

func (h *handler) listAllDevices(c *gin.Context) {
	devices, err := h.Devices.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

func (h *handler) listUserDevices(c *gin.Context) {
	devices, err := h.Devices.ListOwned(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

func (h *handler) addUserDevice(c *gin.Context) {
	var req struct {
		DeviceName string `json:"device_name"`
		MACAddress string `json:"mac_address"`
	}
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Devices.Add(c.Request.Context(), currentUser(c).ID, req.DeviceName, req.MACAddress, h.Clock.Now())
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	respondMessage(c, status, res.Message, res)
}

func (h *handler) unbindUserDevice(c *gin.Context) {
	var req deviceIDRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}
	if req.DeviceID <= 0 {
		h.fail(c, device.ErrDeviceIDRequired)
		return
	}

	msg, err := h.Devices.Unbind(c.Request.Context(), currentUser(c).ID, req.DeviceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, msg, nil)
}

func (h *handler) setPrimaryDevice(c *gin.Context) {
	var req deviceIDRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}
	if req.DeviceID <= 0 {
		h.fail(c, device.ErrDeviceIDRequired)
		return
	}

	if err := h.Devices.SetPrimary(c.Request.Context(), currentUser(c).ID, req.DeviceID); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "primary device updated", nil)
}
