package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"main/internal/bus"
	"main/internal/ingest"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/store"
	"main/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("listener: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	relay := flag.String("relay", "", "Feed relay endpoint (overrides config)")
	dbPath := flag.String("db", "", "Trading database path (overrides config)")
	workers := flag.Int("workers", 0, "Worker count (overrides config)")
	queueCapacity := flag.Int("queue-capacity", 0, "Frame queue capacity (overrides config)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	if *relay != "" {
		loaded.Relay = *relay
	}
	if *dbPath != "" {
		loaded.DatabasePath = *dbPath
	}
	if *workers > 0 {
		loaded.Workers = *workers
	}
	if *queueCapacity > 0 {
		loaded.QueueCapacity = *queueCapacity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "eddn-listener",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	client, err := conn.New(conn.Option{Path: loaded.DatabasePath})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Ping(); err != nil {
		return err
	}
	logs.Infof("trading store ready: %s", loaded.DatabasePath)

	queue := bus.NewQueue(loaded.QueueCapacity)
	metrics := obs.NewMetrics()
	st := store.New(client)

	pool := ingest.NewPool(loaded.Workers, loaded.PopTimeout, queue, st, metrics)
	pool.Run(ctx)
	go reportStats(ctx, metrics, queue, loaded.StatsInterval)

	sub := ingest.NewSubscriber(ctx, ingest.Config{
		Relay:        loaded.Relay,
		Workers:      pool.Workers(),
		RetryBackoff: loaded.RetryBackoff,
	}, queue, metrics)
	if err := sub.Run(ctx); err != nil {
		queue.Close()
		pool.Wait()
		return err
	}

	pool.Wait()
	logStats(metrics, queue)
	logs.Info("listener stopped")
	return nil
}

func reportStats(ctx context.Context, metrics *obs.Metrics, queue *bus.Queue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStats(metrics, queue)
		}
	}
}

func logStats(metrics *obs.Metrics, queue *bus.Queue) {
	snap := metrics.Snapshot()
	logs.Infof("stats: received=%d decoded=%d parsed=%d persisted=%d filtered=%d unsupported=%d errors=%d queued=%d",
		snap.Received, snap.Decoded, snap.Parsed, snap.Persisted,
		snap.Filtered, snap.Unsupported, snap.Errors(), queue.Len())
}
