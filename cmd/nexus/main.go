// Command nexus evaluates food-energy-water nexus scenarios.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fewnexus/nexus/cmd/nexus/commands"
	"github.com/fewnexus/nexus/pkg/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	// The global logger covers the CLI shell; engine runs log through
	// the configured telemetry logger. Both write to stderr.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(telemetry.ParseLevel(os.Getenv("LOG_LEVEL")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx, Version, Commit, BuildDate)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("nexus failed")
		os.Exit(1)
	}
}
