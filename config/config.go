package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	InControl InControlConfig `json:"incontrol"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig contains HTTP server settings for the local bridge API
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// SecurityConfig contains settings for the local bridge API
type SecurityConfig struct {
	APIKey string `json:"api_key"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// InControlConfig contains InControl cloud account and vehicle settings.
//
// PIN is the owner's vehicle PIN. It is required for lock/unlock; when it is
// empty, preconditioning falls back to the last four characters of the VIN,
// which is a platform convention of the vehicle cloud, not a security
// feature.
type InControlConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
	VIN      string `json:"vin"`
	PIN      string `json:"pin"`

	// WakeUpTimeoutMinutes bounds how long a wake-up poll may run.
	WakeUpTimeoutMinutes int `json:"wakeup_timeout_minutes"`

	// LowBatteryThreshold is the charge percentage below which the bridge
	// reports a low battery.
	LowBatteryThreshold int `json:"low_battery_threshold"`

	// Base URLs per upstream concern. Defaults target the production
	// hosts; tests point them at local servers.
	AuthBaseURL    string `json:"auth_base_url"`
	DeviceBaseURL  string `json:"device_base_url"`
	VehicleBaseURL string `json:"vehicle_base_url"`
}

const (
	defaultAuthBaseURL    = "https://jlp-ifas.wirelesscar.net/ifas/jlr"
	defaultDeviceBaseURL  = "https://jlp-ifop.wirelesscar.net/ifop/jlr"
	defaultVehicleBaseURL = "https://jlp-ifoa.wirelesscar.net/if9/jlr"

	defaultWakeUpTimeoutMinutes = 1
	defaultLowBatteryThreshold  = 25
)

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Security.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	if c.InControl.Username == "" || c.InControl.Password == "" {
		return fmt.Errorf("%w: InControl credentials are required", ErrInvalidConfig)
	}

	if c.InControl.VIN == "" {
		return fmt.Errorf("%w: vehicle VIN is required", ErrInvalidConfig)
	}

	if c.InControl.DeviceID == "" {
		// A stable device identifier is needed for registration; generate
		// one when the config does not pin it down.
		c.InControl.DeviceID = uuid.New().String()
	}

	if c.InControl.WakeUpTimeoutMinutes <= 0 {
		c.InControl.WakeUpTimeoutMinutes = defaultWakeUpTimeoutMinutes
	}

	if c.InControl.LowBatteryThreshold <= 0 {
		c.InControl.LowBatteryThreshold = defaultLowBatteryThreshold
	}

	if c.InControl.AuthBaseURL == "" {
		c.InControl.AuthBaseURL = defaultAuthBaseURL
	}
	if c.InControl.DeviceBaseURL == "" {
		c.InControl.DeviceBaseURL = defaultDeviceBaseURL
	}
	if c.InControl.VehicleBaseURL == "" {
		c.InControl.VehicleBaseURL = defaultVehicleBaseURL
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("CARBRIDGE_HOST", "0.0.0.0"),
			Port: getEnvInt("CARBRIDGE_PORT", 8080),
		},
		Security: SecurityConfig{
			APIKey: getEnv("CARBRIDGE_API_KEY", ""),
		},
		Log: LogConfig{
			Format: getEnv("CARBRIDGE_LOG_FORMAT", "json"),
			Level:  getEnv("CARBRIDGE_LOG_LEVEL", "info"),
		},
		InControl: InControlConfig{
			Username:             getEnv("CARBRIDGE_IC_USERNAME", ""),
			Password:             getEnv("CARBRIDGE_IC_PASSWORD", ""),
			DeviceID:             getEnv("CARBRIDGE_IC_DEVICE_ID", ""),
			VIN:                  getEnv("CARBRIDGE_IC_VIN", ""),
			PIN:                  getEnv("CARBRIDGE_IC_PIN", ""),
			WakeUpTimeoutMinutes: getEnvInt("CARBRIDGE_IC_WAKEUP_TIMEOUT_MINUTES", defaultWakeUpTimeoutMinutes),
			LowBatteryThreshold:  getEnvInt("CARBRIDGE_IC_LOW_BATTERY_THRESHOLD", defaultLowBatteryThreshold),
			AuthBaseURL:          getEnv("CARBRIDGE_IC_AUTH_BASE_URL", defaultAuthBaseURL),
			DeviceBaseURL:        getEnv("CARBRIDGE_IC_DEVICE_BASE_URL", defaultDeviceBaseURL),
			VehicleBaseURL:       getEnv("CARBRIDGE_IC_VEHICLE_BASE_URL", defaultVehicleBaseURL),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
