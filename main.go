package main

import (
	"log"
	"log/slog"
	"os"

	"status-service/cmd"

	"github.com/joho/godotenv"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("load .env: %v", err)
		}
	}
	if err := cmd.Execute(); err != nil {
		slog.Error("status-service failed", slog.Any("error", err))
		os.Exit(1)
	}
}
