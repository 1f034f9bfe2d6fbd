package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"marker-animator/internal/clock"
	"marker-animator/internal/config"
	"marker-animator/internal/db"
	"marker-animator/internal/metrics"
	"marker-animator/internal/publisher"
	"marker-animator/internal/route"
	"marker-animator/internal/sim"
)

type brokerPublisher interface {
	sim.Publisher
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	plans, err := loadPlans(ctx, cfg)
	if err != nil {
		log.Fatalf("load routes: %v", err)
	}
	log.Printf("loaded %d routes from %s", len(plans), cfg.RoutesSource)

	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.FrameInterval)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pub, err := newPublisher(cfg, mcol)
	if err != nil {
		log.Fatalf("%s error: %v", cfg.Publisher, err)
	}
	defer pub.Close()

	loop := clock.NewFrameLoop(cfg.FrameInterval)
	if mcol != nil {
		loop.OnFrame(func(d time.Duration) { mcol.FrameDuration.Observe(d.Seconds()) })
	}
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("frame loop: %v", err)
		}
	}()

	mgr := sim.NewManager(loop, pub, sim.Options{
		DefaultLoop:     cfg.DefaultLoop,
		DefaultEasing:   cfg.DefaultEasing,
		SpeedMultiplier: cfg.SpeedMultiplier,
		OutboxSize:      cfg.OutboxSize,
		Metrics:         mcol,
	})
	if err := mgr.Start(ctx, plans); err != nil {
		log.Fatalf("start: %v", err)
	}

	<-ctx.Done()
	// animators are stopped on the loop goroutine, so the loop outlives the manager
	mgr.Close()
	stopLoop()
	<-loopDone
	log.Println("shutdown complete")
}

func loadPlans(ctx context.Context, cfg *config.Config) ([]route.Plan, error) {
	if cfg.RoutesSource == "file" {
		return route.LoadFile(cfg.RoutesFile)
	}

	conn, name, err := db.OpenForCity(ctx, cfg.DatabaseURL, cfg.City)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if name != "" {
		log.Printf("using database %q for city %q", name, cfg.City)
	}

	ids := cfg.TripIDs
	if len(ids) == 0 {
		today := time.Now().In(cfg.Location)
		ids, err = db.ActiveTripIDs(ctx, conn, today, cfg.ActiveTripsLimit)
		if err != nil {
			return nil, err
		}
		log.Printf("%d trips active on %s", len(ids), today.Format("2006-01-02"))
	}
	return db.FetchPlans(ctx, conn, ids)
}

func newPublisher(cfg *config.Config, mcol *metrics.Collector) (brokerPublisher, error) {
	var m publisher.PublisherMetrics
	if mcol != nil {
		m = mcol.PublisherMetrics()
	}
	if cfg.Publisher == "mqtt" {
		return publisher.NewMQTTPublisher(publisher.MQTTOptions{
			URL:       cfg.MQTTURL,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Prefix:    cfg.SubjectPrefix,
			LogTopics: cfg.LogPublishSubjects,
		}, m)
	}
	return publisher.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix, cfg.LogPublishSubjects, m)
}
