package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"bars-archive/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info", "text"))
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&fetchCmd{}, "archive")
	subcommands.Register(&deriveCmd{}, "archive")
	subcommands.Register(&planCmd{}, "archive")
	subcommands.Register(&purgeCmd{}, "archive")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
