package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/deployr"
)

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg := deployr.DefaultConfig()
	if configPath != "" {
		loaded, err := deployr.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	logger, err := deployr.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}

	if err := deployr.RegisterMetricsDefault(); err != nil {
		logger.Warn("failed to register metrics", "error", err)
	}

	st, err := deployr.NewStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sup := deployr.NewWithOptions(st, deployr.SupervisorOptions{
		GracePeriod:  cfg.Supervise.GracePeriod,
		SettleDelay:  cfg.Supervise.SettleDelay,
		SampleWindow: cfg.Supervise.SampleWindow,
		Logger:       logger,
	})
	if cfg.Reconcile.Enabled {
		sup.StartReconciler(cfg.Reconcile.Interval)
		defer sup.StopReconciler()
	}

	prov := deployr.NewProvisioner(cfg.Provision.Python)
	if cfg.Provision.Timeout > 0 {
		prov.Timeout = cfg.Provision.Timeout
	}

	server, err := deployr.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, sup, prov, st)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	logger.Info("deployr daemon listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	return server.Close()
}
