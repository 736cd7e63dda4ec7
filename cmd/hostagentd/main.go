// Package main is the entry point for hostagentd, the TCP agent daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petehayes102/hostagent/agentsrv"
	"github.com/petehayes102/hostagent/internal/config"
	"github.com/petehayes102/hostagent/internal/logging"
	"github.com/petehayes102/hostagent/internal/metrics"
)

func main() {
	var (
		configPath     string
		address        string
		metricsAddress string
		logLevel       string
	)

	cmd := &cobra.Command{
		Use:   "hostagentd",
		Short: "hostagentd runs the host automation agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			// HOSTAGENT_LOG_LEVEL applies when --log-level is not given.
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv(config.EnvPrefix + "LOG_LEVEL"); v != "" {
					logLevel = v
				}
			}
			return run(configPath, address, metricsAddress, logLevel)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	cmd.Flags().StringVar(&address, "address", "", "host:port to listen on, bypassing config")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "host:port to serve /metrics on, bypassing config (disabled if empty)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug/info/warn/error)")
	cmd.MarkFlagsMutuallyExclusive("config", "address")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, address, metricsAddress, logLevel string) error {
	if configPath == "" && address == "" {
		return fmt.Errorf("exactly one of --config or --address is required")
	}

	addr := address
	metricsAddr := metricsAddress
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		addr = cfg.Address
		if metricsAddr == "" {
			metricsAddr = cfg.MetricsAddress
		}
	}

	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}

	m := metrics.New()
	srv := agentsrv.New(log, m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: m.Handler()}
		go func() {
			<-ctx.Done()
			metricsSrv.Close()
		}()
		go func() {
			log.WithField("addr", metricsAddr).Info("serving /metrics")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	return srv.ListenAndServe(ctx, addr)
}
