// Package timeouts defines the shared timeout constants for the engine's
// service boundaries, so durations stay consistent and discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer, health check included.
const GRPCDial = 2 * time.Second
