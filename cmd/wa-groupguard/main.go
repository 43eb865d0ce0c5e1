package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wa-groupguard/internal/bot"
	"wa-groupguard/internal/config"
	"wa-groupguard/internal/crash"
	"wa-groupguard/internal/gateway"
	"wa-groupguard/internal/handler"
	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/moderation"
	"wa-groupguard/internal/permission"
	"wa-groupguard/internal/service"
	"wa-groupguard/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database connection established")

	// Initialize repositories and process-scoped state
	service.Initialize(cfg)
	service.InitRepositories()

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize bot with configuration
	botService, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Wire the moderation core to the WhatsApp transport
	gw := gateway.NewWhatsmeowGateway(botService.Client)
	resolver := permission.NewResolver(cfg.Bot.OwnerJID, service.Members())
	engine := moderation.NewEngine(
		service.Members(), service.Policies(), service.Blacklist(), service.Audit(),
		gw, cfg.Bot.OwnerJID,
		time.Duration(cfg.Moderation.RemovalTimeout)*time.Second,
	)

	h := handler.New(cfg, engine, resolver, gw)
	h.Register(botService.Client)

	if err := botService.Start(ctx, cfg); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	botService.Stop()
	log.Println("Bot gracefully stopped")
}
