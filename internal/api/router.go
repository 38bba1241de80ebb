package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"carbridge/internal/api/handlers"
	"carbridge/internal/api/middleware"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Bridge handlers.VehicleBridge
	APIKey string
	Logger *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// API v1 routes (with authentication)
	v1 := router.Group("/v1")
	v1.Use(authMiddleware(config.APIKey))
	{
		vehicleHandler := handlers.NewVehicleHandler(config.Bridge, config.Logger)

		v1.GET("/vehicle/status", vehicleHandler.GetStatus)
		v1.GET("/vehicle/attributes", vehicleHandler.GetAttributes)
		v1.GET("/vehicle/battery", vehicleHandler.GetBattery)
		v1.GET("/vehicle/lock", vehicleHandler.GetLock)
		v1.GET("/vehicle/climate", vehicleHandler.GetClimate)

		v1.POST("/vehicle/lock", vehicleHandler.Lock)
		v1.POST("/vehicle/unlock", vehicleHandler.Unlock)
		v1.POST("/vehicle/preconditioning/start", vehicleHandler.StartClimate)
		v1.POST("/vehicle/preconditioning/stop", vehicleHandler.StopClimate)
		v1.POST("/vehicle/wakeup", vehicleHandler.WakeUp)
	}

	return router
}

// authMiddleware verifies API key authentication
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-Carbridge-Key")
		if providedKey != apiKey {
			c.JSON(401, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
