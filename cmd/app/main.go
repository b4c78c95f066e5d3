package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pawwalk/internal/config"
	"pawwalk/internal/mylogger"
	walkservice "pawwalk/internal/walk-service"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [flags]

Commands:
  walk      run one walk for a fixed duration, then end and persist it
  serve     run the overlay server and follow the geolocation feed
  snapshot  render a snapshot PNG from a JSON input file
`, os.Args[0])
}

func main() {
	walkCmd := flag.NewFlagSet("walk", flag.ExitOnError)
	duration := walkCmd.Duration("duration", 5*time.Minute, "walk duration")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	port := serveCmd.Int("port", 0, "overlay port (overrides OVERLAY_PORT)")

	snapshotCmd := flag.NewFlagSet("snapshot", flag.ExitOnError)
	in := snapshotCmd.String("in", "snapshot.json", "snapshot input JSON")
	out := snapshotCmd.String("out", "snapshot.png", "output PNG")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "walk":
		_ = walkCmd.Parse(os.Args[2:])
		err = walkservice.RunWalk(ctx, mylog, cfg, *duration)
	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		if *port != 0 {
			cfg.Overlay.Port = *port
		}
		err = walkservice.Serve(ctx, mylog, cfg)
	case "snapshot":
		_ = snapshotCmd.Parse(os.Args[2:])
		err = walkservice.RenderSnapshot(ctx, mylog, cfg, *in, *out)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		mylog.Action("app_failed").Error("command failed", err, "command", os.Args[1])
		os.Exit(1)
	}
}
