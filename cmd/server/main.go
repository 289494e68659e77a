package main

import (
	"context"
	"log"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Initialize application
	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Println(err)
		}
	}()

	// Start server (blocks until shutdown)
	return application.Start(ctx)
}
