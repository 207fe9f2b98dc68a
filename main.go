package main

import (
	"vidcompress/cmd"
	"vidcompress/config"
	"vidcompress/logger"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogFile, true, logger.ParseLevel(cfg.LogLevel)); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("Configuration loaded (logger transport: %s)", cfg.LoggerTransport)
	cmd.Execute(cfg)
}
