// Package discovery centralizes internal service-discovery conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceSweeper is the consent sweeper gRPC service identity.
	ServiceSweeper = "sweeper"
	// ServiceJaeger is the jaeger HTTP service identity.
	ServiceJaeger = "jaeger"
)

var grpcPorts = map[string]int{
	ServiceSweeper: 8095,
}

var httpPorts = map[string]int{
	ServiceJaeger: 16686,
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrDefaultHTTPAddr returns value when set, otherwise the service convention.
func OrDefaultHTTPAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultHTTPAddr(service)
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}
