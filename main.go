// kevai - portfolio backend and chat assistant for kev.ai.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kevinksaji/kevai/internal/analytics"
	"github.com/kevinksaji/kevai/internal/chat"
	"github.com/kevinksaji/kevai/internal/cli"
	"github.com/kevinksaji/kevai/internal/cms"
	"github.com/kevinksaji/kevai/internal/config"
	"github.com/kevinksaji/kevai/internal/knowledge"
	"github.com/kevinksaji/kevai/internal/mail"
	"github.com/kevinksaji/kevai/internal/provider"
	"github.com/kevinksaji/kevai/internal/server"
	"github.com/kevinksaji/kevai/internal/stats"
	"github.com/kevinksaji/kevai/internal/tui"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	if args.Quiet {
		log.SetOutput(io.Discard)
	}

	switch cmd {
	case cli.CmdServe:
		runServe(args)
	case cli.CmdChat:
		runChat(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleHelp()
	}
}

// loadConfig loads the configuration and applies CLI overrides.
func loadConfig(args cli.Args) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if args.DataDir != "" {
		cfg.DataDir = args.DataDir
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildController assembles the chat pipeline: knowledge base, provider
// client, conversation store. The returned watcher is nil unless facts-file
// watching is enabled.
func buildController(cfg *config.Config) (*chat.Controller, *knowledge.Watcher, error) {
	var (
		base *knowledge.Base
		err  error
	)
	if cfg.Chat.FactsFile != "" {
		base, err = knowledge.NewFromFile(cfg.Chat.FactsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading facts file: %w", err)
		}
	} else {
		base = knowledge.New()
	}

	var watcher *knowledge.Watcher
	if cfg.Chat.WatchFacts && cfg.Chat.FactsFile != "" {
		watcher, err = knowledge.Watch(base, cfg.Chat.FactsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("watching facts file: %w", err)
		}
	}

	client := provider.NewClient(cfg.Provider.APIKey).
		WithBaseURL(cfg.Provider.BaseURL).
		WithModel(cfg.Provider.Model).
		WithTimeout(cfg.ProviderTimeout()).
		WithMaxRetries(cfg.Provider.MaxRetries)

	if cfg.Provider.APIKey == "" {
		log.Printf("PROVIDER NOT CONFIGURED | chat will reply with the fallback message")
	}

	store, err := chat.NewStore(filepath.Join(cfg.DataDir, "conversations.json"))
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		return nil, nil, fmt.Errorf("opening conversation store: %w", err)
	}
	store.WithTitleLength(cfg.Chat.TitleLength)

	pipeline := &chat.Pipeline{Base: base, Client: client, MaxMessages: cfg.Chat.MaxMessages}
	return chat.NewController(store, pipeline), watcher, nil
}

// runServe wires up all collaborators and runs the HTTP server until a
// shutdown signal arrives.
func runServe(args cli.Args) {
	cfg := loadConfig(args)

	controller, watcher, err := buildController(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	port := cfg.Server.Port
	if args.Port != 0 {
		port = args.Port
	}

	srv := server.NewServer(port).WithController(controller)

	// Blog: Notion read layer behind a TTL cache
	if cfg.CMS.APIKey != "" && cfg.CMS.DatabaseID != "" {
		cached := cms.NewCached(cms.NewClient(cfg.CMS.APIKey, cfg.CMS.DatabaseID), cfg.CMSCacheTTL())
		srv.WithPosts(cached)
	} else {
		log.Printf("CMS NOT CONFIGURED | blog endpoints disabled")
	}

	// Contact form relay
	mailer := mail.NewMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.To)
	if mailer.IsConfigured() {
		srv.WithMailer(mailer)
	} else {
		log.Printf("MAIL NOT CONFIGURED | contact endpoint disabled")
	}

	// GitHub stats with persisted cache
	if cfg.Stats.Username != "" {
		statsClient := stats.NewClient(cfg.Stats.Username, cfg.Stats.Token, cfg.StatsCacheTTL(), cfg.Stats.RequestsPerHour).
			WithCacheFile(filepath.Join(cfg.DataDir, "stats-cache.json"))
		srv.WithStats(statsClient)
	}

	// Visit analytics
	salt := os.Getenv("KEVAI_ANALYTICS_SALT")
	if salt == "" {
		salt = "kevai"
	}
	store, err := analytics.Open(filepath.Join(cfg.DataDir, "analytics.db"), salt)
	if err != nil {
		log.Printf("ANALYTICS OPEN FAILED | error=%v", err)
	} else {
		defer store.Close()
		srv.WithAnalytics(store)
	}

	// Security configuration
	srv.WithAuth(&server.AuthConfig{
		Enabled:     cfg.Server.BearerToken != "",
		BearerToken: cfg.Server.BearerToken,
	})
	srv.WithCORS(&server.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins})
	srv.WithRateLimiter(server.NewRateLimiter(cfg.Server.RateLimit, time.Minute))

	// Run until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Printf("SIGNAL RECEIVED | signal=%v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runChat starts the terminal chat client.
func runChat(args cli.Args) {
	cfg := loadConfig(args)

	controller, watcher, err := buildController(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	if err := tui.Run(controller, args.Query); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
