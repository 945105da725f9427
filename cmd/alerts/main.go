package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-alerts/internal/application/alerts"
	alertDomain "property-alerts/internal/domain/alert"
	"property-alerts/internal/infrastructure/config"
	"property-alerts/internal/infrastructure/db"
	"property-alerts/internal/infrastructure/mail"
	"property-alerts/internal/infrastructure/persistence/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "match and log without sending or writing")
	verbose := flag.Bool("verbose", false, "per-alert diagnostic logging")
	daemon := flag.Bool("daemon", false, "keep running on the configured interval")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}

	mode := alertDomain.ModeLive
	if *dryRun {
		mode = alertDomain.ModeDryRun
	}
	if mode == alertDomain.ModeLive && !cfg.Mail.Enabled {
		log.Fatalf("mail transport is disabled; enable mail or pass --dry-run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.Connect(connCtx, cfg.DB)
	cancel()
	if err != nil {
		log.Fatalf("CRITICAL: database connection failed: %v", err)
	}
	defer pool.Close()
	log.Printf("database connected")

	mailer := mail.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.Timeout)
	engine := alerts.NewEngine(
		postgres.NewAlertRepo(pool),
		postgres.NewPropertyRepo(pool),
		nil, // 預設降價偵測，見 alerts.MatchAllDetector
		postgres.NewSavedPropertyRepo(pool),
		postgres.NewEventRepo(pool),
		postgres.NewUserRepo(pool),
		mailer,
		cfg.Alerts.Workers,
		*verbose,
	)

	if *daemon {
		worker := alerts.NewWorker(engine, cfg.Alerts.Interval, mode)
		worker.Start()
		<-ctx.Done()
		worker.Stop()
		log.Printf("shutting down")
		return
	}

	stats, err := engine.Run(ctx, mode)
	if err != nil {
		log.Fatalf("CRITICAL: run failed: %v", err)
	}
	log.Printf("run completed: processed=%d matched=%d emails=%d saved=%d failed=%d",
		stats.Processed, stats.Matched, stats.EmailsSent, stats.PropertiesSaved, stats.Failed)
}
