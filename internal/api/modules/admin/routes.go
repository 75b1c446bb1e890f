package admin_module

import (
	"fmt"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/ethanbaker/interviewer/pkg/utils"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the routes for the admin module
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config) error {
	// Make api key validator
	validator, err := makeApiKeyValidator(cfg)
	if err != nil {
		return err
	}

	group := g.Group("/admin")
	group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(validator))

	group.POST("/sessions/:id/redeliver", RedeliverReport) // Retry a failed report email
	return nil
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(cfg *utils.Config) (func(key string) bool, error) {
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set in environment")
	}

	return func(key string) bool {
		return apiKey == key
	}, nil
}
