package health

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the health module. components may
// be nil.
func RegisterRoutes(g *gin.RouterGroup, components func() map[string]string) {
	g.GET("/health", getStatus(components))
}
