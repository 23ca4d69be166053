package main

import (
	"flag"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/bot"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	cfg, err := bot.ReadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to read bot config: %v", err)
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	b, err := bot.New(cfg, service)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	logger.Info.Printf("Bot initialized, %d evaluator(s) allowed", len(cfg.Bot.EvaluatorIDs))
	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot error: %v", err)
	}
}
