package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"pharmacy-portal/internal/catalog"
	"pharmacy-portal/internal/convo"
	"pharmacy-portal/internal/core"
	"pharmacy-portal/internal/db"
	httpserver "pharmacy-portal/internal/http"
	"pharmacy-portal/internal/llm"

	_ "github.com/lib/pq"
)

func main() {
	// Load environment variables
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	notifyChannel := os.Getenv("RESOLUTION_NOTIFY_CHANNEL")
	if notifyChannel == "" {
		notifyChannel = "resolution_updates"
	}
	// Open database connection
	dbConn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	repo := db.NewRepository(dbConn)
	notifier := db.NewNotifier(dbConn, dbURL, notifyChannel)
	// Initialize OpenAI client (uses env: OPENAI_API_KEY, OPENAI_MODEL_CHAT,
	// OPENAI_MODEL_DIAGNOSIS)
	llmClient := llm.NewOpenAIClient()
	convos := convo.NewMemoryStore()
	controller := &core.Controller{
		Assistant: llmClient,
		Diagnoser: llmClient,
		Convos:    convos,
		Resolver:  catalog.NewAggregator(repo),
		Pending:   repo,
		Notifier:  notifier,
	}
	srv := httpserver.NewServer(controller, convos, repo, repo, notifier)
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	log.Printf("Listening on %s", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
