// Command mockoauth2 runs the mock Google-style OAuth2 identity provider.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/lukaszraczylo/mockoauth2/config"
	"github.com/lukaszraczylo/mockoauth2/internal/logger"
	"github.com/lukaszraczylo/mockoauth2/server"
)

// Options are the command line flags. They override file and environment settings.
type Options struct {
	ConfigFile string `short:"c" long:"config" description:"YAML configuration file"`
	Port       int    `short:"p" long:"port" description:"listen port"`
	LogLevel   string `short:"l" long:"log-level" description:"debug, info, error or none"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "mockoauth2: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	log := logger.Default(cfg.LogLevel)
	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Errorf("Failed to close store: %v", err)
		}
	}()

	server.WriteBanner(stdout, cfg)
	return srv.ListenAndServe(ctx)
}

// loadConfig parses flags and loads the configuration they point at.
func loadConfig(args []string) (*config.Config, error) {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		return nil, err
	}

	if options.Port != 0 {
		cfg.Port = options.Port
	}
	if options.LogLevel != "" {
		cfg.LogLevel = options.LogLevel
	}
	if options.Port != 0 || options.LogLevel != "" {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}
