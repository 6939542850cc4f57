package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropadvisor/internal"
	"cropadvisor/internal/api"
	"cropadvisor/internal/config"
	"cropadvisor/internal/container"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)
	logger := internal.DefaultLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	if appConfig.Model.EagerLoad {
		if _, err := appContainer.Models.Get(ctx); err != nil {
			// keep serving; the next request retries the load
			logger.Error("Eager model load failed: %v", err)
		}
	}

	if err := appContainer.StartIngest(); err != nil {
		logger.Error("Sensor ingest disabled: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      appContainer.Server.Router(),
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
	}

	var admin *http.Server
	if appConfig.Admin.Enabled {
		admin = &http.Server{
			Addr:    ":" + appConfig.Admin.Port,
			Handler: api.NewAdminRouter(appContainer.Metrics, appContainer.Recommender),
		}
		go func() {
			log.Printf("Admin server (metrics, pprof) listening on :%s", appConfig.Admin.Port)
			log.Printf("View profiles: go tool pprof -http=:8081 http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Admin.Port)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin server failed: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("Starting crop advisor API on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown: %v", err)
	}
	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin server shutdown: %v", err)
		}
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Container shutdown: %v", err)
	}
}
