package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/crypto/bcrypt"

	"capsule-hostel-backend/config"
	"capsule-hostel-backend/internal/api"
	"capsule-hostel-backend/internal/db"
	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/notification"
	"capsule-hostel-backend/internal/store"
	"capsule-hostel-backend/internal/sweep"
)

func main() {
	logger := log.New(os.Stdout, "hosteld ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Tokens.Timezone)
	if err != nil {
		logger.Fatalf("invalid timezone %q: %v", cfg.Tokens.Timezone, err)
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	if err := bootstrapAdmin(ctx, appStore, &cfg.Auth); err != nil {
		logger.Fatalf("failed to bootstrap admin user: %v", err)
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions)
	workerPool.Start(ctx)

	lifecycle := hostel.New(appStore, hostel.Options{
		Location:           loc,
		DefaultTokenExpiry: cfg.Tokens.DefaultExpiry,
		Notifier:           workerPool,
	})

	sweeper := sweep.New(lifecycle.Tokens, cfg.Tokens.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		logger.Fatalf("failed to start token sweeper: %v", err)
	}
	defer sweeper.Stop()

	handler := api.NewHandler(lifecycle, appStore, &webpushOptions, []byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		JWTSecret:       []byte(cfg.Auth.JWTSecret),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// bootstrapAdmin seeds the initial admin account on first start so a fresh
// deployment has a way to log in.
func bootstrapAdmin(ctx context.Context, s store.Store, cfg *config.AuthConfig) error {
	if cfg.BootstrapAdminUser == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	if _, err := s.GetStaffUser(ctx, cfg.BootstrapAdminUser); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	log.Printf("Creating bootstrap admin user %q", cfg.BootstrapAdminUser)
	return s.CreateStaffUser(ctx, &model.StaffUser{
		Username:     cfg.BootstrapAdminUser,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	})
}
