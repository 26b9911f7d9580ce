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

	"pawchat/internal/api"
	"pawchat/internal/config"
	"pawchat/internal/core"
	"pawchat/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Seed the settings row from the environment on first boot; the
	// settings API owns it afterwards.
	if err := seedSettings(dbStore); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	// Initialize services
	llmService := core.NewLLMService()
	chatService := core.NewChatService(dbStore, llmService, config.AppConfig.DefaultPrompt)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, llmService, dbStore)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // completion calls can take a while
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

func seedSettings(dbStore *store.SQLiteStore) error {
	existing, err := dbStore.GetSettings()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return dbStore.SaveSettings(&store.Settings{
		Endpoint:         config.AppConfig.LLMEndpoint,
		APIKey:           config.AppConfig.LLMAPIKey,
		Model:            config.AppConfig.LLMModel,
		ContextLineLimit: config.AppConfig.ContextLineLimit,
		TimeAwareness:    config.AppConfig.TimeAwareness,
	})
}
