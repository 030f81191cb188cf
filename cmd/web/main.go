package main

import (
	"log"
	"net/http"
	"time"

	"github.com/arena-gg/tourney/internal/config"
	"github.com/arena-gg/tourney/internal/db"
	"github.com/arena-gg/tourney/internal/middleware"
	"github.com/arena-gg/tourney/internal/notify"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	database := db.InitDB(cfg.DatabaseURL)
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth()

	var dispatcher notify.Dispatcher = notify.Noop{}
	if cfg.NATSUrl != "" {
		d, err := notify.Connect(cfg.NATSUrl)
		if err != nil {
			log.Fatal("Failed to connect to NATS:", err)
		}
		dispatcher = d
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(database, sessionManager, dispatcher, cfg)

	log.Printf("Server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal(err)
	}
}
