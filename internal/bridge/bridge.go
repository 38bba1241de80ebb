// Package bridge translates raw vehicle telemetry into the plain values a
// home-automation hub consumes, and gates commands behind a vehicle
// wake-up. It is the only package that knows which telemetry keys matter.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"carbridge/internal/incontrol"
)

// Telemetry keys read from the status snapshot.
const (
	keyStateOfCharge  = "EV_STATE_OF_CHARGE"
	keyChargingStatus = "EV_CHARGING_STATUS"
	keyDoorsLocked    = "DOOR_IS_ALL_DOORS_LOCKED"
	keyClimateStatus  = "CLIMATE_STATUS_OPERATING_STATUS"
)

// Cabin temperature limits the vehicle accepts, in Celsius.
const (
	MinTargetTemperature     = 15.5
	MaxTargetTemperature     = 28.5
	DefaultTargetTemperature = 22
)

// VehicleClient is the slice of the InControl client the bridge needs.
type VehicleClient interface {
	GetVehicleStatus(ctx context.Context) (incontrol.StatusSnapshot, error)
	GetVehicleAttributes(ctx context.Context) (*incontrol.VehicleAttributes, error)
	LockVehicle(ctx context.Context) error
	UnlockVehicle(ctx context.Context) error
	StartPreconditioning(ctx context.Context, targetCelsius float64) error
	StopPreconditioning(ctx context.Context) error
	WakeUp(ctx context.Context) error
}

// Config contains bridge settings
type Config struct {
	// LowBatteryThreshold is the charge percentage below which the bridge
	// reports low battery.
	LowBatteryThreshold int

	// TargetTemperature is the initial preconditioning target in Celsius.
	// Zero means DefaultTargetTemperature.
	TargetTemperature float64
}

// Bridge exposes hub-facing vehicle operations
type Bridge struct {
	client    VehicleClient
	threshold int
	logger    *slog.Logger

	mu     sync.Mutex
	target float64
}

// New creates a new Bridge
func New(client VehicleClient, config Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	target := config.TargetTemperature
	if target == 0 {
		target = DefaultTargetTemperature
	}

	return &Bridge{
		client:    client,
		threshold: config.LowBatteryThreshold,
		logger:    logger.With("component", "bridge"),
		target:    clampTemperature(target),
	}
}

// Status returns the raw telemetry snapshot. Status reads never wake the
// vehicle; waking it just to check state would drain its battery.
func (b *Bridge) Status(ctx context.Context) (incontrol.StatusSnapshot, error) {
	return b.client.GetVehicleStatus(ctx)
}

// Attributes returns the vehicle's descriptive attributes.
func (b *Bridge) Attributes(ctx context.Context) (*incontrol.VehicleAttributes, error) {
	return b.client.GetVehicleAttributes(ctx)
}

// BatteryLevel returns the EV state of charge in percent.
func (b *Bridge) BatteryLevel(ctx context.Context) (int, error) {
	status, err := b.client.GetVehicleStatus(ctx)
	if err != nil {
		return 0, err
	}
	return intValue(status, keyStateOfCharge)
}

// IsCharging reports whether the vehicle is currently charging.
func (b *Bridge) IsCharging(ctx context.Context) (bool, error) {
	status, err := b.client.GetVehicleStatus(ctx)
	if err != nil {
		return false, err
	}
	return stringValue(status, keyChargingStatus) == "CHARGING", nil
}

// IsLowBattery reports whether the charge is below the configured
// threshold.
func (b *Bridge) IsLowBattery(ctx context.Context) (bool, error) {
	level, err := b.BatteryLevel(ctx)
	if err != nil {
		return false, err
	}
	return level < b.threshold, nil
}

// IsLocked reports whether all doors are locked.
func (b *Bridge) IsLocked(ctx context.Context) (bool, error) {
	status, err := b.client.GetVehicleStatus(ctx)
	if err != nil {
		return false, err
	}
	return stringValue(status, keyDoorsLocked) == "TRUE", nil
}

// IsClimateOn reports whether preconditioning is operating.
func (b *Bridge) IsClimateOn(ctx context.Context) (bool, error) {
	status, err := b.client.GetVehicleStatus(ctx)
	if err != nil {
		return false, err
	}
	return stringValue(status, keyClimateStatus) == "HEATING", nil
}

// LockDoors wakes the vehicle and locks the doors.
func (b *Bridge) LockDoors(ctx context.Context) error {
	b.logger.Info("Locking doors")
	if err := b.client.WakeUp(ctx); err != nil {
		return err
	}
	return b.client.LockVehicle(ctx)
}

// UnlockDoors wakes the vehicle and unlocks the doors.
func (b *Bridge) UnlockDoors(ctx context.Context) error {
	b.logger.Info("Unlocking doors")
	if err := b.client.WakeUp(ctx); err != nil {
		return err
	}
	return b.client.UnlockVehicle(ctx)
}

// StartClimate wakes the vehicle and starts preconditioning toward the
// current target temperature.
func (b *Bridge) StartClimate(ctx context.Context) error {
	target := b.TargetTemperature()
	b.logger.Info("Starting preconditioning", "target_celsius", target)
	if err := b.client.WakeUp(ctx); err != nil {
		return err
	}
	return b.client.StartPreconditioning(ctx, target)
}

// StopClimate wakes the vehicle and stops preconditioning.
func (b *Bridge) StopClimate(ctx context.Context) error {
	b.logger.Info("Stopping preconditioning")
	if err := b.client.WakeUp(ctx); err != nil {
		return err
	}
	return b.client.StopPreconditioning(ctx)
}

// WakeUp wakes the vehicle without issuing any command.
func (b *Bridge) WakeUp(ctx context.Context) error {
	return b.client.WakeUp(ctx)
}

// TargetTemperature returns the current preconditioning target.
func (b *Bridge) TargetTemperature() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

// SetTargetTemperature sets the preconditioning target, clamped to the
// range the vehicle accepts, and returns the applied value.
func (b *Bridge) SetTargetTemperature(celsius float64) float64 {
	clamped := clampTemperature(celsius)

	b.mu.Lock()
	b.target = clamped
	b.mu.Unlock()

	return clamped
}

func clampTemperature(celsius float64) float64 {
	if celsius < MinTargetTemperature {
		return MinTargetTemperature
	}
	if celsius > MaxTargetTemperature {
		return MaxTargetTemperature
	}
	return celsius
}

// intValue reads a numeric telemetry value. The upstream is loose about
// value types, so numbers may arrive as JSON numbers or as strings.
func intValue(status incontrol.StatusSnapshot, key string) (int, error) {
	raw, ok := status[key]
	if !ok {
		return 0, fmt.Errorf("telemetry key %s missing from status snapshot", key)
	}

	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("telemetry key %s has non-numeric value %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("telemetry key %s has unsupported type %T", key, raw)
	}
}

func stringValue(status incontrol.StatusSnapshot, key string) string {
	if v, ok := status[key].(string); ok {
		return v
	}
	return ""
}
