package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carbridge/config"
	"carbridge/internal/api"
	"carbridge/internal/bridge"
	"carbridge/internal/incontrol"
	"carbridge/internal/logging"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		// .env is optional; real environment variables win either way
		_ = godotenv.Load()
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
	})

	// Initialize InControl client
	logger.Info("Initializing InControl client", "vin", cfg.InControl.VIN, "device_id", cfg.InControl.DeviceID)
	client, err := incontrol.NewClient(incontrol.Config{
		Username:       cfg.InControl.Username,
		Password:       cfg.InControl.Password,
		DeviceID:       cfg.InControl.DeviceID,
		VIN:            cfg.InControl.VIN,
		PIN:            cfg.InControl.PIN,
		AuthBaseURL:    cfg.InControl.AuthBaseURL,
		DeviceBaseURL:  cfg.InControl.DeviceBaseURL,
		VehicleBaseURL: cfg.InControl.VehicleBaseURL,
		WakeUpTimeout:  time.Duration(cfg.InControl.WakeUpTimeoutMinutes) * time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create InControl client: %w", err)
	}

	// Initialize bridge
	vehicleBridge := bridge.New(client, bridge.Config{
		LowBatteryThreshold: cfg.InControl.LowBatteryThreshold,
	}, logger)

	// Initialize REST API
	router := api.NewRouter(api.RouterConfig{
		Bridge: vehicleBridge,
		APIKey: cfg.Security.APIKey,
		Logger: logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // wake-up polls can run for minutes
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}
