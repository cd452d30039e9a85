package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/otp-api-nosql/internal/application/cleanup"
	"github.com/otp-api-nosql/internal/application/verification"
	"github.com/otp-api-nosql/internal/config"
	"github.com/otp-api-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/otp-api-nosql/internal/infrastructure/jwt"
	"github.com/otp-api-nosql/internal/infrastructure/smtp"
	transporthttp "github.com/otp-api-nosql/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap the DynamoDB table (created if it doesn't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)
	tokenRepo := dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.VerificationTokens)

	// Delivery channel — falls back to the disabled variant when SMTP is
	// unconfigured, in which case issued codes are returned to callers.
	delivery := smtp.NewChannel(cfg)
	if !delivery.Configured() {
		log.Println("WARN: SMTP not configured, running with delivery disabled")
	}

	// Proof-token signer (optional — graceful fallback if keys are missing).
	var signer verification.ProofSigner
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		signer = p
	} else {
		log.Printf("WARN: proof-token provider not available: %v", err)
	}

	deps := &transporthttp.Deps{
		Tokens:   tokenRepo,
		Delivery: delivery,
		Signer:   signer,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background expiry sweep, independent of the request path.
	runnerCtx, stopRunner := context.WithCancel(context.Background())
	runner := cleanup.NewRunner(cleanup.NewService(tokenRepo), cfg.SweepInterval)
	go runner.Run(runnerCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
