package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/leanne/internal/api/server"
	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/api/server/handlers"
	"github.com/bz888/leanne/internal/chat"
	"github.com/bz888/leanne/internal/config"
	"github.com/bz888/leanne/internal/logger"
	"github.com/bz888/leanne/internal/speech"
	"github.com/bz888/leanne/internal/speech/output_api"
	"github.com/bz888/leanne/internal/speech/sound"
	"github.com/bz888/leanne/internal/ui"
)

func Execute() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openAIClient, err := client.NewOpenAIClient(client.OpenAIConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		log.Fatal(err)
	}
	session := chat.NewSession(chat.OpenAI(openAIClient), chat.Options{RenderInterval: cfg.RenderInterval})

	if cfg.Serve {
		logger.InitLogger(cfg.Dev, cfg.LogPath, nil)
		defer logger.Close()
		localLogger := logger.NewLogger("main")
		if !openAIClient.Configured() {
			localLogger.Warn(client.APIKeyEnv, "is not set, chat requests will fail")
		}

		handler := handlers.NewHandler(session, openAIClient.Model(), openAIClient.Configured())
		if err := server.New(cfg.Addr, handler).Run(ctx); err != nil {
			localLogger.Error("Server stopped:", err)
		}
		return
	}

	var (
		player    *speech.Player
		speechErr error
	)
	if cfg.Speech.Enabled && openAIClient.Configured() {
		speaker := sound.NewSpeaker(output_api.NewSynthesizer(openAIClient, cfg.Speech.Model, cfg.Speech.Voice))
		if speechErr = speaker.Open(); speechErr == nil {
			defer speaker.Close()
			player = speech.NewPlayer(speaker, speech.PlayerOptions{
				Volume: cfg.Speech.Volume,
				Rate:   cfg.Speech.Rate,
			})
		}
	}

	view := ui.New(session, player, cfg.Dev)
	logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole())
	defer logger.Close()

	localLogger := logger.NewLogger("main")
	switch {
	case speechErr != nil:
		localLogger.Warn("Voice output disabled:", speechErr)
	case player == nil:
		localLogger.Info("Voice output disabled")
	}
	if !openAIClient.Configured() {
		localLogger.Warn(client.APIKeyEnv, "is not set, chat requests will fail")
	}

	if err := view.Run(ctx); err != nil {
		localLogger.Error("UI stopped:", err)
	}
}
