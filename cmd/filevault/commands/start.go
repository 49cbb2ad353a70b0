package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/filevault/internal/logger"
	"github.com/marmos91/filevault/pkg/api"
	"github.com/marmos91/filevault/pkg/config"
	filevaultmetrics "github.com/marmos91/filevault/pkg/metrics/prometheus"
	"github.com/marmos91/filevault/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the file vault server",
	Long: `Start the file vault server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/filevault/config.yaml.

Examples:
  # Start with defaults
  filevault start

  # Start with custom config file
  filevault start --config /etc/filevault/config.yaml

  # Override a value the config file sets, through the environment
  FILEVAULT_LOGGING_LEVEL=DEBUG filevault start --config /etc/filevault/config.yaml`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Storage.StorageDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.MetadataDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	authToken := config.LoadAuthToken()

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileServer := server.New(cfg, authToken)

	if cfg.Metrics.Enabled {
		fileServer.SetMetrics(filevaultmetrics.New(prometheus.DefaultRegisterer))
	}

	var adminServer *api.Server
	if cfg.Admin.Enabled {
		adminServer = api.NewServer(cfg.Admin, cfg.Metrics.Enabled, cfg.Storage.StorageDir, cfg.Storage.MetadataDir, cfg.Storage.LogDir)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- fileServer.Serve(ctx)
	}()

	adminDone := make(chan error, 1)
	if adminServer != nil {
		go func() {
			adminDone <- adminServer.Start(ctx)
		}()
		logger.Info("admin HTTP surface starting", "port", adminServer.Port())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("file vault is running. press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		cancel()
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")

	case err := <-adminDone:
		signal.Stop(sigChan)
		cancel()
		<-serverDone
		if err != nil {
			logger.Error("admin server error", "error", err)
			return err
		}
	}

	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
