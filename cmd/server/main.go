package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/selfquiz/backend/internal/bank"
	"github.com/selfquiz/backend/internal/config"
	"github.com/selfquiz/backend/internal/database"
	"github.com/selfquiz/backend/internal/middleware"
	"github.com/selfquiz/backend/internal/quiz"
	"github.com/selfquiz/backend/internal/run"
	"github.com/selfquiz/backend/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Session store: Postgres when configured, otherwise in-memory.
	var store session.Store
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		store = session.NewPostgresStore(db)
	} else {
		log.Printf("WARN: DATABASE_URL not set, sessions will not survive restarts")
		store = session.NewMemoryStore()
	}

	// Question banks: remote static host when configured, otherwise local files.
	var source bank.Source
	if cfg.BankBaseURL != "" {
		source = bank.NewHTTPSource(cfg.BankBaseURL)
	} else {
		source = bank.NewFSSource(cfg.DataDir)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		log.Printf("WARN: SESSION_SECRET not set, using insecure development key")
		secret = "dev-insecure-session-secret"
	}
	sessions := middleware.NewManager(secret)

	service := quiz.NewService(source, run.NewEngine(), session.NewAdapter(store))
	handler := quiz.NewHandler(service)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sessions.Session)
	handler.RegisterRoutes(api)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	log.Printf("Server starting on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, c.Handler(r)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
