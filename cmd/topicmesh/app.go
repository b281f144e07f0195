package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/topicmesh/config"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/ledger"
	pebblestore "github.com/hupe1980/topicmesh/ledger/pebble"
	"github.com/hupe1980/topicmesh/logging"
)

const defaultConfigName = config.DefaultFile

// app bundles what every command needs: configuration, logger, metrics and
// the opened ledger.
type app struct {
	cfg     config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Recorder
	store   ledger.Store
	report  *meterReport
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "cli",
	})

	withReport, _ := cmd.Flags().GetBool("metrics")
	meter, report := newMeter(withReport)
	rec, err := metrics.New(meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	store, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.DataDir, InMemory: cfg.InMemory})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, metrics: rec, store: store, report: report}, nil
}

// Close closes the ledger and prints the metrics report when requested.
func (a *app) Close() error {
	err := a.store.Close()
	if a.report != nil {
		if rerr := a.report.Write(context.Background(), os.Stderr); rerr != nil {
			a.logger.Warn("Writing metrics report failed: %v", rerr)
		}
	}
	return err
}

// client creates a ledger client for account. An empty inbound topic leaves
// the client unbound.
func (a *app) client(account, inbound string) *ledger.Client {
	return ledger.NewClient(a.store, account, func(o *ledger.ClientOptions) {
		o.InboundTopicID = inbound
		o.LargeContentThreshold = a.cfg.LargeContentThreshold
		o.Logger = a.logger
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
