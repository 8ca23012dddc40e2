package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"callgogo/backend/internal/config"
	"callgogo/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <user_id> [duration_in_hours] [reason...]")
			os.Exit(1)
		}
		userID := os.Args[2]
		duration := config.DefaultBanDuration
		reasons := []string{}
		if len(os.Args) > 3 {
			hours, err := strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
			duration = time.Duration(hours) * time.Hour
			reasons = os.Args[4:]
		}
		if err := storageSvc.BanUser(userID, reasons, duration); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", userID)

	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <user_id>")
			os.Exit(1)
		}
		if err := storageSvc.UnbanUser(os.Args[2]); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", os.Args[2])

	case "reports":
		status := "new"
		if len(os.Args) > 2 {
			status = os.Args[2]
		}
		if status == "all" {
			status = ""
		}
		reports, err := storageSvc.ListReports(status)
		if err != nil {
			log.Fatalf("Error listing reports: %v", err)
		}
		for _, r := range reports {
			fmt.Printf("%s [%s/%s] %s -> %s: %s (%s)\n",
				r.ID, r.Severity, r.Status, r.ActorID, r.TargetID, r.Reason, r.CreatedAt.Format(time.RFC3339))
		}

	case "confirm-report":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin confirm-report <record_id>")
			os.Exit(1)
		}
		if err := storageSvc.UpdateModerationStatus(os.Args[2], "confirmed"); err != nil {
			log.Fatalf("Error confirming report: %v", err)
		}
		fmt.Printf("Report %s has been confirmed.\n", os.Args[2])

	case "dismiss-report":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin dismiss-report <record_id>")
			os.Exit(1)
		}
		if err := storageSvc.UpdateModerationStatus(os.Args[2], "dismissed"); err != nil {
			log.Fatalf("Error dismissing report: %v", err)
		}
		fmt.Printf("Report %s has been dismissed.\n", os.Args[2])

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
