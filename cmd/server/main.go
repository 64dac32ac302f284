package main

import (
	"fmt"
	"log"

	"recivo/internal/classify"
	"recivo/internal/config"
	emailnoop "recivo/internal/email/noop"
	emailses "recivo/internal/email/ses"
	"recivo/internal/extraction"
	claudeextract "recivo/internal/extraction/claude"
	textractextract "recivo/internal/extraction/textract"
	"recivo/internal/handler"
	"recivo/internal/port"
	"recivo/internal/repository/postgres"
	"recivo/internal/router"
	"recivo/internal/service"
	s3storage "recivo/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepo(db)
	receiptRepo := postgres.NewReceiptRepo(db)
	merchantRepo := postgres.NewMerchantRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize extraction engines
	var structured port.Extractor
	if cfg.Extraction.Structured.Enabled {
		structured, err = textractextract.NewExtractor(&cfg.Extraction.Structured)
		if err != nil {
			return fmt.Errorf("failed to initialize structured extractor: %w", err)
		}
	}
	generative := claudeextract.NewExtractor(&cfg.Extraction.Generative)
	arbitrator := extraction.NewArbitrator(structured, generative)

	// Initialize email sender
	var emailSender port.EmailSender
	if cfg.Email.Provider == "ses" {
		emailSender, err = emailses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.FrontendURL)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	} else {
		emailSender = emailnoop.NewNoopSender()
	}

	// Initialize services
	resolver := service.NewMerchantResolver(merchantRepo)
	classifier := classify.NewClassifier()
	receiptSvc := service.NewReceiptService(
		receiptRepo, userRepo, s3Client, arbitrator, resolver, classifier,
		emailSender, &cfg.S3, &cfg.Inbound, &cfg.Plans)
	inboundSvc := service.NewInboundService(userRepo, receiptSvc, &cfg.Inbound, &cfg.Plans)
	botSvc := service.NewBotService(userRepo, receiptSvc, &cfg.Inbound, &cfg.Plans)
	aliasSvc := service.NewAliasService(userRepo, &cfg.Inbound)
	reportSvc := service.NewReportService(receiptRepo, merchantRepo)

	// Initialize handlers
	receiptH := handler.NewReceiptHandler(receiptSvc, reportSvc)
	aliasH := handler.NewAliasHandler(aliasSvc)
	inboundH := handler.NewInboundHandler(inboundSvc, &cfg.Inbound)
	botH := handler.NewBotHandler(botSvc, &cfg.Inbound)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(&cfg.CORS, receiptH, aliasH, inboundH, botH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
