package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hupe1980/topicmesh/internal/metrics"
)

// meterReport collects counters in process and prints their totals on exit.
type meterReport struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// newMeter returns the meter the commands record on. Without a report the
// global provider is used, which is a noop unless something installed one.
func newMeter(report bool) (metric.Meter, *meterReport) {
	if !report {
		return otel.Meter(metrics.InstrumentName), nil
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	return provider.Meter(metrics.InstrumentName), &meterReport{reader: reader, provider: provider}
}

// Write prints one "name total" line per counter and shuts the provider down.
func (r *meterReport) Write(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return err
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, totals[name])
	}

	return r.provider.Shutdown(ctx)
}
