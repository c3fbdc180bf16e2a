package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/appbootstrap"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("INCIDENT_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.NewLogger("prod").Fatalf("config: %v", err)
	}
	logger := utils.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := appbootstrap.Run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server: %v", err)
	}
	logger.Printf("shutdown complete")
}
