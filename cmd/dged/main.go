// Package main provides the dged binary: a grant engine daemon serving
// the grant service over gRPC, plus offline calculator commands.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/blockberries/dge/config"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "dged"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Depth grant engine daemon",
		Long: `dged runs the depth grant engine: reputation-scaled funding caps,
bonded grant proposals, milestone tranche release and slashing.

Configuration is read from a YAML file (--config) and DGE_* environment
variables.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	load := func() (config.Config, error) {
		return loadConfig(configPath)
	}
	cmd.AddCommand(
		serveCmd(load),
		assessCmd(load),
		scheduleCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// loadConfig reads the file at path over the defaults, applies the
// environment and validates the result.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
