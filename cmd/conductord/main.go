package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/conductor-hq/conductord/internal/config"
	"github.com/conductor-hq/conductord/internal/daemon"
)

var CLI struct {
	Serve struct {
		Config string `help:"Path to conductor.toml" type:"path" name:"config" short:"c" env:"CONDUCTOR_CONFIG"`
	} `cmd:"" help:"Run the conductor daemon"`
}

func main() {
	// systemd/journald supplies timestamps.
	log.SetFlags(0)

	ctx := kong.Parse(&CLI)

	switch ctx.Command() {
	case "serve":
		runServer()
	default:
		log.Fatal("unknown command")
	}
}

func runServer() {
	configPath := CLI.Serve.Config
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	d, err := daemon.New(configPath)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	log.Printf("starting conductord (config: %s)", configPath)
	if err := d.Run(runCtx); err != nil {
		log.Fatalf("daemon exited with error: %v", err)
	}
}
