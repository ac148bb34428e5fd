package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "verify-cli",
	Short:         "Dental insurance eligibility verification pipeline",
	Long:          "Verifies patient insurance eligibility against clearinghouse APIs, normalizes benefits onto the practice's verification catalog, and tracks per-patient pipeline progress.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return bootstrap()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// bootstrap loads configuration and installs the global logger before
// any subcommand runs.
func bootstrap() error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.InitLogger(c.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg = c
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
