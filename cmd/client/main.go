package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duelnet-go/internal/client"
	"duelnet-go/internal/geom"
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
	var skipMenu bool
	var logLevel string
	var commandRate uint32
	var serverTickRate uint32
	var timeoutSecs uint64

	cmd := &cobra.Command{
		Use:           "duelnet-client [host:port]",
		Short:         "Game client: connect, predict, and render a text status dashboard",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr string
			if len(args) == 1 {
				addr = args[0]
			}
			if addr == "" && skipMenu {
				return fmt.Errorf("main: --skip-menu requires a host:port argument")
			}

			cfg := client.DefaultConfig()
			if commandRate > 0 {
				cfg.CommandRate = commandRate
			}
			if serverTickRate > 0 {
				cfg.ServerTickRate = serverTickRate
			}
			if timeoutSecs > 0 {
				cfg.ConnectionTimeout = time.Duration(timeoutSecs) * time.Second
			}

			// The text UI owns stdout; diagnostic logging goes to stderr
			// instead so the two never interleave in the same repaint.
			log := logging.New(logLevel)
			log.SetOutput(os.Stderr)

			return runClient(addr, cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&skipMenu, "skip-menu", false, "connect immediately instead of showing the address prompt (requires host:port)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.Uint32Var(&commandRate, "command-rate", 0, "outbound commands per second (0 = default)")
	flags.Uint32Var(&serverTickRate, "server-tick-rate", 0, "expected server simulation rate (0 = default)")
	flags.Uint64Var(&timeoutSecs, "timeout", 0, "connection idle timeout in seconds (0 = default)")

	return cmd
}

// runClient wires a Client to a bubbletea program. The dial closure
// performs New/Connect/Run off the UI goroutine and reports back via
// clientAttachedMsg/connectFailedMsg, matching the Elm-architecture
// convention that side effects live in tea.Cmd, not Update.
func runClient(addr string, cfg client.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dial := func(target string) tea.Cmd {
		return func() tea.Msg {
			cl, err := client.New(cfg, target, log, nil, geom.Vec3{})
			if err != nil {
				return connectFailedMsg{err: err}
			}
			if err := cl.Connect(); err != nil {
				cl.Close()
				return connectFailedMsg{err: err}
			}
			go cl.Run(ctx, func() *client.InputState { return nil })
			go cl.RequestLobbyList()
			return clientAttachedMsg{cl: cl}
		}
	}

	m := newModel(addr, dial)
	program := tea.NewProgram(m)
	_, err := program.Run()
	return err
}
