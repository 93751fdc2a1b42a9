// Package healthprobe parses probe flags and checks a service health endpoint.
package healthprobe

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/campushealth/immunize/internal/platform/cmd"
	"github.com/campushealth/immunize/internal/platform/discovery"
	platformgrpc "github.com/campushealth/immunize/internal/platform/grpc"
	"github.com/campushealth/immunize/internal/platform/timeouts"
)

// Config holds health probe configuration.
type Config struct {
	Addr    string        `env:"IMMUNIZE_PROBE_ADDR"`
	Timeout time.Duration `env:"IMMUNIZE_PROBE_TIMEOUT" envDefault:"2s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Addr = discovery.OrDefaultGRPCAddr(cfg.Addr, discovery.ServiceSweeper)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The gRPC health endpoint address")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Probe timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run dials the endpoint and waits for a SERVING health status.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.GRPCDial
	}
	conn, err := platformgrpc.DialWithHealth(
		ctx,
		nil,
		cfg.Addr,
		cfg.Timeout,
		log.Printf,
		platformgrpc.DefaultClientDialOptions()...,
	)
	if err != nil {
		return fmt.Errorf("probe %s: %w", cfg.Addr, err)
	}
	defer conn.Close()
	log.Printf("%s is serving", cfg.Addr)
	return nil
}
