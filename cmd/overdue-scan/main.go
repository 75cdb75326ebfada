package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sangini/invoicehub/db"
	"github.com/sangini/invoicehub/lib/logging"
	"github.com/sangini/invoicehub/lib/service"
)

// Sweeps every past-due invoice and applies the overdue and defaulted
// transitions. Meant to run from cron; the admin endpoint does the same.
func main() {
	c := &service.Config{}

	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	logger := logging.Logger(c.LogFilePath)

	dbConn, err := db.Open(db.Config{
		DatabaseUri:             c.DatabaseUri,
		DatabaseMaxConns:        c.DatabaseMaxConns,
		DatabaseMaxIdleConns:    c.DatabaseMaxIdleConns,
		DatabaseConnMaxLifetime: c.DatabaseConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	svc := &service.InvoicehubService{
		Config: c,
		DB:     dbConn,
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	transitioned, err := svc.ScanOverdueInvoices(ctx)
	if err != nil {
		logger.Fatalf("Overdue scan failed: %v", err)
	}
	logger.Infof("Overdue scan done, %d invoices transitioned", transitioned)
}
