// Command fleetcheck syncs current weather for every monitored city once,
// derives alerts from the readings without any simulation, and prints a
// summary.
//
// Usage:
//
//	go run ./cmd/fleetcheck [-json] [-pacing 300ms]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/adapter/openweather"
	"github.com/couchcryptid/climate-resilience-monitor/internal/config"
	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// cityReport is one row of output.
type cityReport struct {
	City    string                 `json:"city"`
	Weather domain.WeatherSnapshot `json:"weather"`
	Alerts  []string               `json:"alerts"`
}

func main() {
	asJSON := flag.Bool("json", false, "print the report as JSON")
	pacing := flag.Duration("pacing", 0, "delay between city requests (default from SYNC_PACING)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, os.Stdout, *asJSON, *pacing); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, out io.Writer, asJSON bool, pacing time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	if pacing <= 0 {
		pacing = cfg.SyncPacing
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	client := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherCountry, cfg.WeatherTimeout,
		openweather.RetryPolicy{
			MaxRetries:     cfg.WeatherMaxRetries,
			RateLimitDelay: cfg.WeatherRateLimitDelay,
			RetryDelay:     cfg.WeatherRetryDelay,
		},
		metrics, logger,
		openweather.WithBaseURL(cfg.WeatherBaseURL),
	)
	cities := domain.Cities()
	fleet := pipeline.NewFleetSync(client, cities, pacing, cfg.SyncInterval, clk, metrics, logger)

	readings, err := fleet.Sync(ctx, cities)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: sync: %v\n", err)
		return 1
	}

	reports := buildReports(cities, readings, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: encode: %v\n", err)
			return 1
		}
		return 0
	}
	if err := printTable(out, reports); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write table: %v\n", err)
		return 1
	}
	return 0
}

func buildReports(cities []domain.City, readings map[string]domain.WeatherSnapshot, rng *rand.Rand) []cityReport {
	reports := make([]cityReport, 0, len(cities))
	for _, c := range cities {
		w, ok := readings[c.ID]
		if !ok {
			continue
		}
		alerts := domain.DeriveAlerts(domain.Conditions{City: c, Weather: &w}, rng)
		r := cityReport{City: c.Name, Weather: w, Alerts: make([]string, 0, len(alerts))}
		for _, a := range alerts {
			r.Alerts = append(r.Alerts, fmt.Sprintf("%s (%s)", a.Type, a.Severity))
		}
		reports = append(reports, r)
	}
	return reports
}

func printTable(out io.Writer, reports []cityReport) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tTEMP\tHUMIDITY\tRAIN\tSOURCE\tALERTS")
	for _, r := range reports {
		alerts := "-"
		if len(r.Alerts) > 0 {
			alerts = fmt.Sprint(r.Alerts)
		}
		fmt.Fprintf(tw, "%s\t%.1f°C\t%.0f%%\t%.1fmm\t%s\t%s\n",
			r.City, r.Weather.Temp, r.Weather.Humidity, r.Weather.Rain, r.Weather.Source, alerts)
	}
	return tw.Flush()
}
