package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	// Global flags
	configPath string
	debug      bool

	cfg    *Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "htmlinclude",
	Short: "Resolve <html-include> elements",
	Long: `htmlinclude resolves <html-include> elements the way a browser would.

expand writes documents with every include replaced by its settled
content. serve runs a development server that does the same on each
request and answers lazy includes from HTMX pages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if debug {
			c.Log.Level = "debug"
		}
		cfg = c
		logger = newLogger(c.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "htmlinclude version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(expandCmd, serveCmd, versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
