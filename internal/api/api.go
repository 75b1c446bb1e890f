package api

import (
	"log"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/interviewer/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	admin_module "github.com/ethanbaker/interviewer/internal/api/modules/admin"
	health_module "github.com/ethanbaker/interviewer/internal/api/modules/health"
	interview_module "github.com/ethanbaker/interviewer/internal/api/modules/interview"
)

// NewEngine builds the gin engine with every module mounted. The interview
// service must already be initialized with interview_module.Init or Use.
func NewEngine(cfg *utils.Config) (*gin.Engine, error) {
	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	origins := cfg.GetList("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup, interview_module.Components)
	interview_module.RegisterRoutes(baseGroup)
	if err := admin_module.RegisterRoutes(baseGroup, cfg); err != nil {
		return nil, err
	}

	return engine, nil
}

// Start initializes the interview service and serves the API until it fails
func Start(cfg *utils.Config) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	if err := interview_module.Init(cfg); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize interview service: ", err)
	}
	defer interview_module.Shutdown()

	engine, err := NewEngine(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to build router: ", err)
	}

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
