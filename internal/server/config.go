package server

import (
	"time"

	"duelnet-go/internal/lossinjector"
)

// Config bundles every server-side tunable exposed on the CLI (see
// cmd/server), with defaults matching the CLI's own.
type Config struct {
	BindAddr           string
	TickRate           uint32
	MaxClients         int
	SnapshotBufferSize uint32
	Timeout            time.Duration
	Headless           bool
	MetricsAddr        string

	// GlobalPacketLoss, if non-nil, applies simulated adverse network
	// conditions to every connection: it is installed for each new
	// connection's address when its ConnectionRequest arrives, replacing
	// any config already held for that address.
	GlobalPacketLoss *lossinjector.PacketLossSimulation
}

// DefaultConfig mirrors the CLI's documented flag defaults.
func DefaultConfig() Config {
	return Config{
		BindAddr:           "0.0.0.0:27015",
		TickRate:           60,
		MaxClients:         32,
		SnapshotBufferSize: 64,
		Timeout:            120 * time.Second,
		Headless:           false,
		MetricsAddr:        "",
	}
}
