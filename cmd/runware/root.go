package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	runware "github.com/KotikNekot/Runware-Wrapper"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	URL        string
	Heartbeat  time.Duration
	Timeout    time.Duration
	LogLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "runware",
		Short: "Runware inference client",
		Long: `runware submits image and text tasks to the Runware WebSocket API.

Settings are read from RUNWARE_API_KEY, RUNWARE_URL and
RUNWARE_HEARTBEAT_INTERVAL, then from the TOML file given with --config,
then from flags.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "TOML config file")
	pf.StringVar(&flags.URL, "url", "", "WebSocket endpoint (overrides config)")
	pf.DurationVar(&flags.Heartbeat, "heartbeat", runware.DefaultHeartbeatInterval, "ping interval, 0 disables")
	pf.DurationVar(&flags.Timeout, "timeout", 2*time.Minute, "overall deadline for the command")
	pf.StringVar(&flags.LogLevel, "log-level", "warn", "log level: debug|info|warn|error")

	rootCmd.AddCommand(
		newGenerateCmd(flags),
		newUpscaleCmd(flags),
		newRemoveBackgroundCmd(flags),
		newCaptionCmd(flags),
		newEnhanceCmd(flags),
	)

	return rootCmd
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

// runTask starts a client, runs fn and prints its result as indented JSON.
func runTask(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, c *runware.Client) (any, error)) error {
	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.URL != "" {
		cfg.URL = flags.URL
	}
	if cmd.Flags().Changed("heartbeat") {
		cfg.HeartbeatInterval = flags.Heartbeat
	}

	logger, err := newLogger(flags.LogLevel)
	if err != nil {
		return err
	}

	client, err := runware.NewFromConfig(cfg, runware.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.Timeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Stop(context.Background())

	out, err := fn(ctx, client)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
