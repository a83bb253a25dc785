// Command api serves the TalentPool HTTP API.
//
// @title TalentPool API
// @version 1.0
// @description Talent pool, interview and usage metering API for HR teams and candidates.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"talentpool-backend/internal/config"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.NewServer(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
	defer s.Close()

	if err := s.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped with error")
		s.Close()
		os.Exit(1)
	}
	log.Info("server exited")
}
