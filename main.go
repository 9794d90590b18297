package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pokerbot/auth"
	"pokerbot/cliparse"
	"pokerbot/engine"
	"pokerbot/jira"
	"pokerbot/store"
	"pokerbot/telegram"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the session store
	repo, err := store.Open(cfg.StoreType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("store open failed", "type", cfg.StoreType, "error", err)
		os.Exit(1)
	}
	slog.Info("Session store ready", "type", cfg.StoreType)

	bot := telegram.New(cfg.BotToken, cfg.APIURL)

	eng := engine.New(repo, bot, engine.Options{
		Scale:       cfg.VoteScale,
		VoteTimeout: time.Duration(cfg.VoteTimeoutSec) * time.Second,
		WarnBefore:  time.Duration(cfg.WarnBeforeSec) * time.Second,
	})

	tokens := auth.Tokens{
		User:  cfg.UserToken,
		Lead:  cfg.LeadToken,
		Admin: cfg.AdminToken,
	}

	// Issue tracker is optional; without it /import and /push are disabled
	var source engine.TaskSource
	if cfg.JiraURL != "" {
		source = jira.New(cfg.JiraURL, cfg.JiraUsername, cfg.JiraAPIToken, cfg.StoryPointsField)
		slog.Info("Issue tracker configured", "url", cfg.JiraURL)
	}

	dispatcher := telegram.NewDispatcher(bot, eng, tokens, source)

	// signal.Notify requires the channel to be buffered
	ctx, cancel := context.WithCancel(context.Background())
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
	}()

	slog.Info("Polling for updates")
	if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped")
}
