package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/awardintel/award-engine/internal/alert"
	"github.com/awardintel/award-engine/internal/bus"
	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/history"
	"github.com/awardintel/award-engine/internal/pkg/logger"
	"github.com/awardintel/award-engine/internal/pkg/security"
	"github.com/awardintel/award-engine/internal/store"
)

// app holds the clients shared by the commands. Everything is built once
// per invocation and closed by close.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   store.Store
	events  bus.Bus
	history history.Recorder
}

// loadConfig reads the global flags and loads configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	return loadConfigWith(cmd, config.Load)
}

// loadConfigWith is loadConfig with a different loader, for commands that
// skip part of the validation.
func loadConfigWith(cmd *cobra.Command, load func(string, ...string) (*config.Config, error)) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := load(configPath, envFiles...)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.Log.Format)
	log.Debug("config loaded",
		"store_backend", cfg.Store.Backend,
		"store_url", cfg.Store.URL,
		"store_key", security.MaskSecret(cfg.Store.Key),
		"table", cfg.Store.Table,
		"bus", cfg.Bus.Type,
		"history", cfg.History.Type,
	)
	return cfg, log, nil
}

// newApp connects the store, bus and history configured in cfg.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = s

	events, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.events = events

	rec, err := history.New(cfg.History)
	if err != nil {
		a.close()
		return nil, err
	}
	a.history = rec

	return a, nil
}

// checker builds the alert checker for the configured notifiers.
func (a *app) checker() (*alert.Checker, error) {
	notifiers, err := alert.NewNotifiers(a.cfg.Alert, a.log)
	if err != nil {
		return nil, err
	}
	return alert.NewChecker(alert.CheckerConfig{
		Threshold:    a.cfg.Alert.Threshold,
		Route:        a.cfg.Generator.Route,
		DashboardURL: a.cfg.Alert.DashboardURL,
	}, a.store, notifiers, a.events, a.log), nil
}

// close shuts down the bus first so in-flight handlers can still reach
// the store.
func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("closing bus", "error", err.Error())
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("closing history", "error", err.Error())
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store", "error", err.Error())
		}
	}
}
