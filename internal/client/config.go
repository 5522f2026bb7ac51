// Package client implements the client side of the connection: handshake,
// per-tick command send, snapshot ingestion into the interpolation
// engine, movement prediction/reconciliation, and the event/lobby/queue
// request helpers. Grounded on original_source's
// crates/client/src/net/client.rs (NetworkClient).
package client

import "time"

// Config tunes a Client's timing and reconciliation behavior. Mirrors
// the defaults in the original NetworkClient's ClientConfig, adjusted
// to this project's 60Hz simulation rate (the original's 20Hz default
// does not match server.DefaultConfig's TickRate and was never wired to
// it end-to-end).
type Config struct {
	ServerTickRate          uint32
	InterpolationDelayTicks uint32
	ConnectionTimeout       time.Duration
	CommandRate             uint32
	PingInterval            time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServerTickRate:          60,
		InterpolationDelayTicks: 2,
		ConnectionTimeout:       10 * time.Second,
		CommandRate:             60,
		PingInterval:            time.Second,
	}
}
