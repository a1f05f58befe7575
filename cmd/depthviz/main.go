// Command depthviz renders depth predictions of a trained model for a few
// train and val clips.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stevecastle/depthviz/appconfig"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	debug      bool
	logger     = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "depthviz",
	Short:         "Depth prediction visualizer",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logger, debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (default: data directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Human-readable debug logging")
}

// initLogger switches between JSON output and colored debug text.
func initLogger(l *logrus.Logger, debugMode bool) {
	l.SetOutput(os.Stdout)
	if debugMode {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.Debug("Debug logging enabled")
		return
	}
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
}

func loadConfig() (appconfig.Config, error) {
	if configPath == "" {
		cfg, _, err := appconfig.Load()
		return cfg, err
	}
	cfg, _, err := appconfig.LoadFrom(configPath)
	return cfg, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
