// Package main is the production entry point for the feishin desktop player.
//
// Build:
//
//	go build -o build/feishin ./cmd
//
// Run:
//
//	./build/feishin --log-level debug
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flightmansam/feishin/internal/app"
	"github.com/flightmansam/feishin/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// environment and .env first; flags override
	config := app.DefaultConfig()
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "feishin",
		Short:         "Feishin is a desktop music player driving mpv.",
		Version:       app.GetVersionInfo().FullString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("log-level") {
				config.Logger.Level = logger.ParseLevel(logLevel, config.Logger.Level)
			}
			return run(config)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&config.UseMockPlayer, "mock-player", config.UseMockPlayer, "use an in-process player instead of mpv")
	flags.StringVar(&logLevel, "log-level", config.Logger.Level.String(), "log level: debug, info, warn or error")
	flags.StringVar(&config.Logger.FilePath, "log-file", config.Logger.FilePath, "also write logs to this rotating file")
	flags.StringVar(&config.MpvPath, "mpv-path", config.MpvPath, "mpv binary, overrides the saved setting for this run")
	flags.StringVar(&config.SocketDir, "socket-dir", config.SocketDir, "directory for the mpv IPC socket")
	flags.StringVar(&config.RemoteAddr, "remote-addr", config.RemoteAddr, "serve the websocket remote on this address")

	return rootCmd
}

func run(config app.Config) error {
	application, err := app.NewApplication(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	defer func() {
		if err := application.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.Any("error", err))
		return err
	}
	return nil
}
