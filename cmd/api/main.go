package main

import (
	"github.com/ethanbaker/interviewer/internal/api"
	"github.com/ethanbaker/interviewer/pkg/utils"
)

// Start the API server
func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.GetEnvWithDefault("ENV_FILE", ".env"))

	// Start
	api.Start(cfg)
}
