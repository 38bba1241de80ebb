package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carbridge/internal/incontrol"
)

// VehicleBridge is the bridge surface the handlers consume.
type VehicleBridge interface {
	Status(ctx context.Context) (incontrol.StatusSnapshot, error)
	Attributes(ctx context.Context) (*incontrol.VehicleAttributes, error)
	BatteryLevel(ctx context.Context) (int, error)
	IsCharging(ctx context.Context) (bool, error)
	IsLowBattery(ctx context.Context) (bool, error)
	IsLocked(ctx context.Context) (bool, error)
	IsClimateOn(ctx context.Context) (bool, error)
	LockDoors(ctx context.Context) error
	UnlockDoors(ctx context.Context) error
	StartClimate(ctx context.Context) error
	StopClimate(ctx context.Context) error
	WakeUp(ctx context.Context) error
	TargetTemperature() float64
	SetTargetTemperature(celsius float64) float64
}

// VehicleHandler serves vehicle state and command endpoints
type VehicleHandler struct {
	bridge VehicleBridge
	logger *slog.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(bridge VehicleBridge, logger *slog.Logger) *VehicleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VehicleHandler{
		bridge: bridge,
		logger: logger,
	}
}

// GetStatus returns the raw telemetry snapshot
// GET /v1/vehicle/status
func (h *VehicleHandler) GetStatus(c *gin.Context) {
	status, err := h.bridge.Status(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetAttributes returns the vehicle's descriptive attributes
// GET /v1/vehicle/attributes
func (h *VehicleHandler) GetAttributes(c *gin.Context) {
	attributes, err := h.bridge.Attributes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, attributes)
}

// GetBattery returns battery level, charging and low-battery state
// GET /v1/vehicle/battery
func (h *VehicleHandler) GetBattery(c *gin.Context) {
	ctx := c.Request.Context()

	level, err := h.bridge.BatteryLevel(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	charging, err := h.bridge.IsCharging(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	low, err := h.bridge.IsLowBattery(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"level":       level,
		"charging":    charging,
		"low_battery": low,
	})
}

// GetLock returns the current door lock state
// GET /v1/vehicle/lock
func (h *VehicleHandler) GetLock(c *gin.Context) {
	locked, err := h.bridge.IsLocked(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": locked})
}

// GetClimate returns the preconditioning state and target
// GET /v1/vehicle/climate
func (h *VehicleHandler) GetClimate(c *gin.Context) {
	on, err := h.bridge.IsClimateOn(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"on":                 on,
		"target_temperature": h.bridge.TargetTemperature(),
	})
}

// Lock wakes the vehicle and locks the doors
// POST /v1/vehicle/lock
func (h *VehicleHandler) Lock(c *gin.Context) {
	h.command(c, "lock", h.bridge.LockDoors)
}

// Unlock wakes the vehicle and unlocks the doors
// POST /v1/vehicle/unlock
func (h *VehicleHandler) Unlock(c *gin.Context) {
	h.command(c, "unlock", h.bridge.UnlockDoors)
}

type startClimateRequest struct {
	TargetTemperature *float64 `json:"target_temperature"`
}

// StartClimate wakes the vehicle and starts preconditioning; an optional
// body sets the target temperature first
// POST /v1/vehicle/preconditioning/start
func (h *VehicleHandler) StartClimate(c *gin.Context) {
	var req startClimateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body: " + err.Error(),
				"code":  "INVALID_REQUEST",
			})
			return
		}
	}

	if req.TargetTemperature != nil {
		applied := h.bridge.SetTargetTemperature(*req.TargetTemperature)
		h.logger.Info("Target temperature set", "requested", *req.TargetTemperature, "applied", applied)
	}

	h.command(c, "preconditioning start", h.bridge.StartClimate)
}

// StopClimate wakes the vehicle and stops preconditioning
// POST /v1/vehicle/preconditioning/stop
func (h *VehicleHandler) StopClimate(c *gin.Context) {
	h.command(c, "preconditioning stop", h.bridge.StopClimate)
}

// WakeUp wakes the vehicle without issuing any command
// POST /v1/vehicle/wakeup
func (h *VehicleHandler) WakeUp(c *gin.Context) {
	if err := h.bridge.WakeUp(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": "online"})
}

func (h *VehicleHandler) command(c *gin.Context, name string, run func(context.Context) error) {
	if err := run(c.Request.Context()); err != nil {
		h.logger.Error("Vehicle command failed", "command", name, "error", err)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"result": "accepted"})
}

// fail maps core errors onto HTTP responses. The upstream being down and
// the vehicle staying asleep are different failures and get different
// status codes.
func (h *VehicleHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, incontrol.ErrPINRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "PIN_REQUIRED",
		})
	case errors.Is(err, incontrol.ErrWakeUpTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": err.Error(),
			"code":  "WAKEUP_TIMEOUT",
		})
	default:
		var apiErr *incontrol.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
				"code":  "UPSTREAM_ERROR",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"code":  "INTERNAL_ERROR",
		})
	}
}
