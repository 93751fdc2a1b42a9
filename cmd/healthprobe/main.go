// Package main probes a service health endpoint, for container health checks.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	healthprobecmd "github.com/campushealth/immunize/internal/cmd/healthprobe"
)

func main() {
	cfg, err := healthprobecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[HEALTHPROBE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := healthprobecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("probe failed: %v", err)
	}
}
