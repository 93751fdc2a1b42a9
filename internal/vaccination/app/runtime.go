// Package app wires storage, the consent workflow, and the health endpoint
// into the sweeper runtime.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/consent"
	"github.com/campushealth/immunize/internal/vaccination/notify"
	"github.com/campushealth/immunize/internal/vaccination/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls sweeper startup and loop behavior.
type RuntimeConfig struct {
	Port          int
	DBPath        string
	SweepInterval time.Duration
}

const (
	defaultSweeperPort   = 8095
	defaultSweeperDB     = "data/immunize.db"
	defaultSweepInterval = time.Minute
)

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultSweeperPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultSweeperDB
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return cfg
}

// Run starts the sweeper runtime: a health endpoint plus the periodic consent
// expiry sweep. It blocks until ctx is cancelled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sweeper storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sweeper sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close sweeper sqlite store: %v", closeErr)
		}
	}()

	workflow := consent.NewWorkflow(store, notify.LogNotifier{}, batch.New(store), nil)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on sweeper port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("sweeper.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("sweeper server listening at %v", listener.Addr())
	return runSweepLoop(ctx, workflow, cfg.SweepInterval, time.Now)
}

// sweeper is the slice of the consent workflow the loop drives.
type sweeper interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

func runSweepLoop(ctx context.Context, workflow sweeper, interval time.Duration, clock func() time.Time) error {
	if clock == nil {
		clock = time.Now
	}
	sweep := func() {
		expired, err := workflow.ExpireOverdue(ctx, clock())
		if err != nil {
			log.Printf("expire overdue consents: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("expired %d overdue consents", expired)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}
