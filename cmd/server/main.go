package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saji-pos/api/internal/config"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/printer"
	"github.com/saji-pos/api/internal/router"
	"github.com/saji-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	var p printer.Printer
	if cfg.PrinterURL != "" {
		p = printer.NewHTTPPrinter(cfg.PrinterURL)
		log.Printf("Using HTTP printer at %s", cfg.PrinterURL)
	} else {
		p = printer.LogPrinter{}
		log.Println("PRINTER_URL not set, tickets go to the log")
	}

	r := router.New(cfg, queries, pool, hub, p)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
