package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"raidcal/internal/catalog"
	"raidcal/internal/config"
	appLog "raidcal/internal/log"
	"raidcal/internal/model"
	"raidcal/internal/timeline"
	"raidcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("raidcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"catalog", conf.Catalog,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"city_count", len(conf.Cities),
		"once", flags.once,
	)

	store := catalog.NewStore(conf.Catalog)
	if err := store.Reload(); err != nil {
		appLog.Error("initial catalog load failed", err, "path", conf.Catalog)
		if flags.once {
			os.Exit(1)
		}
		// The server still starts with an empty catalog; the cron reload
		// will pick the file up once it appears.
	}

	if flags.once {
		if err := runOnce(conf, store); err != nil {
			appLog.Error("once run failed", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Periodic catalog reload.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := store.Reload(); err != nil {
			appLog.Error("scheduled catalog reload failed", err, "path", conf.Catalog)
		}
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	if err := web.Serve(ctx, conf, store); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}

	appLog.Info("raidcal exiting")
}

// runOnce aligns every catalog event against the configured cities and
// writes the results to stdout as JSON.
func runOnce(conf *config.Config, store *catalog.Store) error {
	cities := make([]model.City, 0, len(conf.Cities))
	for _, c := range conf.Cities {
		cities = append(cities, model.City{Label: c.Label, Zone: model.Zone(c.Zone)})
	}
	observer := model.Zone(conf.Timezone)

	type entry struct {
		EventUID string          `json:"event_uid"`
		Summary  string          `json:"summary"`
		Timeline *model.Timeline `json:"timeline"`
	}

	events := store.Events()
	out := make([]entry, 0, len(events))
	for _, ev := range events {
		out = append(out, entry{
			EventUID: ev.UID,
			Summary:  ev.Summary,
			Timeline: timeline.Align(ev.Time, cities, observer),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/raidcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Align all catalog events once, print JSON and exit")

	flag.Parse()

	return cfg
}
