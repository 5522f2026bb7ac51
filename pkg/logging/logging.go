// Package logging provides the process's structured logger plus the
// ASCII banner/section helpers carried over from the teacher's
// pkg/logger for CLI-start flavor. Diagnostic logging itself goes
// through logrus rather than the teacher's hand-rolled formatter, so
// per-connection fields (client_id, addr, ...) attach as structured
// key/value pairs instead of being interpolated into a message string.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process-wide logger. level is parsed with logrus's own
// level names ("debug", "info", "warn", "error"); an unrecognized level
// falls back to Info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// ANSI color codes, kept for the Banner/Section helpers below.
const (
	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
)

// Section prints a section header to stdout, outside the structured
// logger, for human-facing CLI output at process start only.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", colorCyan, border, colorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", colorCyan, colorReset, title, colorCyan, colorReset)
	fmt.Printf("%s╚%s╝%s\n\n", colorCyan, border, colorReset)
}

// Banner prints the application banner for title/version at process
// start, outside the structured logger.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ██╗   ██╗███████╗██╗     ███╗   ██╗███████╗████████╗   ║
║   ██╔══██╗██║   ██║██╔════╝██║     ████╗  ██║██╔════╝╚══██╔══╝   ║
║   ██║  ██║██║   ██║█████╗  ██║     ██╔██╗ ██║█████╗     ██║      ║
║   ██║  ██║██║   ██║██╔══╝  ██║     ██║╚██╗██║██╔══╝     ██║      ║
║   ██████╔╝╚██████╔╝███████╗███████╗██║ ╚████║███████╗   ██║      ║
║   ╚═════╝  ╚═════╝ ╚══════╝╚══════╝╚═╝  ╚═══╝╚══════╝   ╚═╝      ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, colorCyan, title, colorReset, colorGreen, version, colorReset)
}
