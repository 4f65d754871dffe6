package main

import (
	"context"
	"flag"
	"log"
	"os"

	"DripView/internal/di"
	"DripView/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("%s env=%s port=%d ratelimit=%s archive=%t(%s) refresher=%t",
		cfg.App.Name, cfg.App.Env, cfg.Server.Port, rateLimitMode(cfg),
		cfg.Archive.Enabled, cfg.Archive.Backend, cfg.Refresher.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func rateLimitMode(cfg *config.Config) string {
	if !cfg.RateLimit.Enabled {
		return "off"
	}
	return cfg.RateLimit.Backend
}
