package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"duelnet-go/internal/lossinjector"
	"duelnet-go/internal/server"
	"duelnet-go/internal/telemetry"
	"duelnet-go/pkg/logging"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "duelnet-server",
		Short:         "Authoritative game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(v)
		},
	}

	flags := cmd.Flags()
	flags.String("bind", "0.0.0.0:27015", "UDP address to bind")
	flags.Uint32("tick-rate", 60, "simulation ticks per second")
	flags.Int("max-clients", 32, "maximum concurrent connections")
	flags.Uint32("snapshot-buffer-size", 64, "ring buffer depth for delta baselines")
	flags.Duration("timeout", 120*time.Second, "connection idle timeout")
	flags.Bool("headless", false, "suppress the startup banner")
	flags.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
	flags.String("config", "", "path to a config file (yaml/json/toml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Float32("packet-loss-percent", 0, "simulated packet loss percentage applied to every connection (0 disables)")
	flags.Uint32("packet-loss-latency-ms", 0, "simulated one-way base latency in milliseconds")
	flags.Uint32("packet-loss-jitter-ms", 0, "simulated latency jitter in milliseconds")

	v.BindPFlags(flags)
	v.SetDefault("bind", "0.0.0.0:27015")
	v.SetDefault("tick-rate", 60)
	v.SetDefault("max-clients", 32)
	v.SetDefault("snapshot-buffer-size", 64)
	v.SetDefault("timeout", 120*time.Second)
	v.SetDefault("headless", false)
	v.SetDefault("metrics-addr", "")

	return cmd
}

// runServer loads config (flags override file values override built-in
// defaults, per viper's own precedence), wires up the server, and blocks
// until a shutdown signal arrives.
func runServer(v *viper.Viper) error {
	if cfgPath := v.GetString("config"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("main: read config file: %w", err)
		}
	}

	cfg := server.Config{
		BindAddr:           v.GetString("bind"),
		TickRate:           v.GetUint32("tick-rate"),
		MaxClients:         v.GetInt("max-clients"),
		SnapshotBufferSize: v.GetUint32("snapshot-buffer-size"),
		Timeout:            v.GetDuration("timeout"),
		Headless:           v.GetBool("headless"),
		MetricsAddr:        v.GetString("metrics-addr"),
	}
	if lossPercent := v.GetFloat64("packet-loss-percent"); lossPercent > 0 {
		cfg.GlobalPacketLoss = &lossinjector.PacketLossSimulation{
			Enabled:      true,
			LossPercent:  float32(lossPercent),
			MinLatencyMs: v.GetUint32("packet-loss-latency-ms"),
			MaxLatencyMs: v.GetUint32("packet-loss-latency-ms") + v.GetUint32("packet-loss-jitter-ms"),
			JitterMs:     v.GetUint32("packet-loss-jitter-ms"),
		}
	}

	log := logging.New(v.GetString("log-level"))

	if !cfg.Headless {
		logging.Banner("Duelnet Server", version)
	}

	var metrics *telemetry.Metrics
	if cfg.MetricsAddr != "" {
		metrics = telemetry.New()
	}

	srv, err := server.New(cfg, log, metrics)
	if err != nil {
		return fmt.Errorf("main: start server: %w", err)
	}

	log.WithField("addr", srv.LocalAddr().String()).Info("listening")
	log.WithField("tick_rate", cfg.TickRate).Info("simulation configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)
	go func() {
		errChan <- srv.Run(ctx)
	}()
	if metrics != nil {
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				errChan <- fmt.Errorf("main: metrics server: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Warn("shutting down gracefully")
		cancel()
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("main: server exited: %w", err)
		}
		return nil
	}
}
