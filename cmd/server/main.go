package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/ada"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/config"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/database"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/handler"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/integration"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/middleware"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/repository"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	svix "github.com/svix/svix-webhooks/go"
)

func main() {
	cfg := config.Load()

	if cfg.WebhookSecret == "" {
		log.Fatal("WEBHOOK_SECRET is required")
	}
	if cfg.AdaBaseURL == "" || cfg.AdaAPIKey == "" || cfg.AdaChannelID == "" {
		log.Fatal("ADA_BASE_URL, ADA_API_KEY and ADA_CHANNEL_ID are required")
	}

	verifier, err := svix.NewWebhook(cfg.WebhookSecret)
	if err != nil {
		log.Fatalf("Invalid WEBHOOK_SECRET: %v", err)
	}

	// Optional transcript archive
	var pool *pgxpool.Pool
	var transcriptRepo *repository.TranscriptRepository
	if cfg.ArchiveEnabled() {
		pool, err = database.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(context.Background(), pool); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations applied successfully")

		transcriptRepo = repository.NewTranscriptRepository(pool)
	} else {
		log.Println("No DATABASE_URL set, transcripts stay in memory")
	}

	// Services
	adaClient := ada.NewClient(cfg.AdaBaseURL, cfg.AdaAPIKey, cfg.AdaChannelID, cfg.AdaInsecureTLS)
	sessionSvc := service.NewSessionService(cfg.SessionSecret)
	wsHub := service.NewWSHub()

	var archive service.TranscriptArchive
	if transcriptRepo != nil {
		archive = transcriptRepo
	}
	convSvc := service.NewConversationService(wsHub, archive)
	batcher := service.NewMessageBatcher(0, convSvc.Deliver)

	zendesk := integration.NewZendeskService(integration.ZendeskConfig{
		Enabled:   cfg.ZendeskEnabled,
		Subdomain: cfg.ZendeskSubdomain,
		Email:     cfg.ZendeskEmail,
		APIToken:  cfg.ZendeskAPIToken,
		Tag:       cfg.ZendeskTag,
		Priority:  cfg.ZendeskPriority,
		Type:      cfg.ZendeskType,
	})
	discord := integration.NewDiscordNotifier(cfg.DiscordWebhookOps)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Chat page
	pageH := handler.NewPageHandler()
	app.Get("/", pageH.Index)

	// Health
	healthH := handler.NewHealthHandler(pool, wsHub, convSvc)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// Inbound webhooks
	webhookH := handler.NewWebhookHandler(verifier, batcher, convSvc, zendesk, discord)
	app.Post("/webhooks/message", middleware.RateLimit(120, time.Minute), webhookH.HandleEvent)

	// Conversation API for the page
	v1 := app.Group("/api/v1")
	convH := handler.NewConversationHandler(adaClient, convSvc, sessionSvc, discord)
	v1.Post("/conversations", middleware.RateLimit(10, time.Minute), convH.Start)
	v1.Post("/conversations/:id/messages", middleware.RateLimit(60, time.Minute), convH.SendMessage)
	v1.Post("/conversations/:id/end", convH.End)
	v1.Get("/conversations/:id/messages", convH.Transcript)
	v1.Post("/session/reset", convH.ResetSession)

	if transcriptRepo != nil {
		historyH := handler.NewHistoryHandler(transcriptRepo)
		v1.Get("/conversations/:id/history", historyH.GetHistory)
	}

	// WebSocket
	wsH := handler.NewWSHandler(wsHub, convSvc, sessionSvc)
	app.Get("/ws", wsH.Upgrade)

	// Start hub
	go wsHub.Run()

	// Retention sweep for the archive
	if transcriptRepo != nil && cfg.ChatRetentionDays > 0 {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				deleted, err := transcriptRepo.DeleteOlderThan(ctx, cfg.ChatRetentionDays)
				cancel()
				if err != nil {
					log.Printf("[retention] sweep failed: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("[retention] deleted %d archived messages", deleted)
				}
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Ada conversations demo running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	batcher.Close()
	wsHub.Shutdown()
	log.Println("Server stopped")
}
