package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"github.com/voxhollow/holo/internal/app"
	"github.com/voxhollow/holo/internal/config"
	"github.com/voxhollow/holo/internal/log"
	"github.com/voxhollow/holo/pkg/audioio"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level (debug, info, warn, error)")
	webAddr := cli.StringP("web", "w", "", "Dashboard listen address (overrides HOLO_WEB_ADDR)")
	backend := cli.StringP("audio", "a", "auto", "Audio backend (auto, portaudio, mock)")
	noWeb := cli.Bool("no-web", false, "Disable the dashboard")
	cli.Parse()

	log.Init(*logLevel)
	logger := log.L()

	config.LoadEnv(*envFile)

	addr := config.WebAddr()
	if *webAddr != "" {
		addr = *webAddr
	}
	if *noWeb {
		addr = ""
	}

	cfg := app.Config{
		STTURL:         config.STTURL(),
		TTSURL:         config.TTSURL(),
		TTSVoice:       config.TTSVoice(),
		LLMBaseURL:     config.LLMBaseURL(),
		LLMFallbackURL: config.LLMFallbackURL(),
		LLMKey:         config.LLMKey(),
		LLMModel:       config.LLMModel(),
		WebAddr:        addr,
		AudioBackend:   audioio.Backend(*backend),
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("holo starting", "model", cfg.LLMModel)

	if err := a.Run(ctx); err != nil {
		logger.Error("pipeline failed", "error", err)
		a.Shutdown()
		os.Exit(1)
	}

	a.Shutdown()
	logger.Info("goodbye")
}
