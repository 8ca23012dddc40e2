package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"callgogo/backend/internal/api/handler"
	"callgogo/backend/internal/callback"
	"callgogo/backend/internal/callhub"
	"callgogo/backend/internal/config"
	"callgogo/backend/internal/game"
	"callgogo/backend/internal/matchmaking"
	"callgogo/backend/internal/models"
	"callgogo/backend/internal/moderation"
	"callgogo/backend/internal/notify"
	"callgogo/backend/internal/registry"
	"callgogo/backend/internal/session"
	"callgogo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=callgogodb port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.CallRecord{},
		&models.ModerationRecord{},
		&models.CallbackRequest{},
		&models.Ban{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting CallGoGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// Admin alerts are optional; the ledger works without them.
	var alerter *notify.TelegramAlerter
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_ADMIN_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("Invalid TELEGRAM_ADMIN_CHAT_ID: %v", err)
		}
		alerter, err = notify.NewTelegramAlerter(token, chatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram alerter: %v", err)
		}
	}

	reg := registry.NewService()
	ledger := moderation.NewLedger(s, alerter)
	if err := ledger.Load(); err != nil {
		log.Fatalf("Failed to load moderation ledger: %v", err)
	}

	sessions := session.NewManager(reg, s)
	queue := matchmaking.NewService(reg, ledger, sessions, s)
	games := game.NewEngine()
	broker := callback.NewBroker(config.CallbackTTL, ledger, sessions, s)

	hub := callhub.NewHub(reg, queue, sessions, games, ledger, broker)
	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, reg, s)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           ":8080",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
