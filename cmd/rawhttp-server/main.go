// rawhttp-server serves the echo, user-agent and file endpoints over a
// hand-written HTTP/1.1 stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rawhttp/pkg/server"
)

// options is everything main needs beyond server.Config.
type options struct {
	cfg       server.Config
	logFormat string
}

// parseOptions layers defaults, then the environment, then flags.
func parseOptions(args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	cfg := server.DefaultConfig()
	if err := cfg.ApplyEnv(getenv); err != nil {
		return options{}, err
	}

	opts := options{cfg: cfg}
	fs := flag.NewFlagSet("rawhttp-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.cfg.Directory, "directory", cfg.Directory, "root directory for /files (in-memory when empty)")
	fs.StringVar(&opts.cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.DurationVar(&opts.cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "close connections idle for this long")
	fs.StringVar(&opts.cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "console", "log output format (console or json)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.cfg.Directory != "" {
		info, err := os.Stat(opts.cfg.Directory)
		if err != nil {
			return options{}, fmt.Errorf("directory: %w", err)
		}
		if !info.IsDir() {
			return options{}, fmt.Errorf("directory: %s is not a directory", opts.cfg.Directory)
		}
	}
	return opts, nil
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) error {
	opts, err := parseOptions(args, getenv, stderr)
	if err != nil {
		return err
	}
	level, err := opts.cfg.Level()
	if err != nil {
		return err
	}
	logger, err := server.NewLogger(stderr, opts.logFormat, level)
	if err != nil {
		return err
	}
	opts.cfg.Logger = logger

	store := "memory"
	if opts.cfg.Directory != "" {
		store = opts.cfg.Directory
	}
	logger.Info().Str("addr", opts.cfg.Addr).Str("files", store).Msg("starting server")

	if err := server.New(opts.cfg).Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("server exited")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "rawhttp-server: %v\n", err)
		os.Exit(1)
	}
}
