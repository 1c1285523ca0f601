package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"travelone/internal/config"
	"travelone/internal/database"
	"travelone/internal/export"
	"travelone/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		hotelID  = flag.String("hotel", "", "hotel id to export")
		startStr = flag.String("start", "", "range start (YYYY-MM-DD)")
		endStr   = flag.String("end", "", "range end (YYYY-MM-DD)")
	)
	flag.Parse()

	if *hotelID == "" || *startStr == "" || *endStr == "" {
		flag.Usage()
		return fmt.Errorf("hotel, start and end are required")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		return fmt.Errorf("parse end: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	exporter := export.New(db, cfg.Exports.Path, logger)
	path, err := exporter.HotelBookings(context.Background(), *hotelID, start, end)
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}
