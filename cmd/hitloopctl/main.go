package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

// hitloopctl runs one-shot pipeline operations: issuing work units,
// polling the marketplace, and ingesting completed units. The same
// wiring as the worker, driven by hand.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("hitloopctl failed: %v", err)
	}
}
