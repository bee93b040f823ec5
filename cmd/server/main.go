// Package main implements the entry point for the prediction API server,
// which charges owners for text predictions and dispatches them to
// asynchronous workers through a durable task queue.
package main

import (
	"context"
	"log"
)

// main initializes configuration, logging, database, queue, and services,
// then serves HTTP until interrupted.
func main() {
	ctx := context.Background()

	app, err := newApplication(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
