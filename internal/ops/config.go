package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	defaultRelay         = "tcp://eddn.edcd.io:9500"
	defaultDatabasePath  = "data/TradeDangerous.db"
	defaultWorkers       = 16
	defaultQueueCapacity = 4096
	defaultPopTimeout    = 100 * time.Millisecond
	defaultRetryBackoff  = time.Second
	defaultStatsInterval = 30 * time.Second
)

// FileConfig mirrors the JSON config layout. Durations are milliseconds.
type FileConfig struct {
	Relay           string `json:"relay"`
	DatabasePath    string `json:"databasePath"`
	Workers         int    `json:"workers"`
	QueueCapacity   int    `json:"queueCapacity"`
	PopTimeoutMS    int    `json:"popTimeoutMs"`
	RetryBackoffMS  int    `json:"retryBackoffMs"`
	StatsIntervalMS int    `json:"statsIntervalMs"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Relay         string
	DatabasePath  string
	Workers       int
	QueueCapacity int
	PopTimeout    time.Duration
	RetryBackoff  time.Duration
	StatsInterval time.Duration
}

// Load reads an optional JSON config file and fills in defaults. An empty
// path yields the default configuration.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Workers < 0 {
		return Loaded{}, fmt.Errorf("workers must be >= 0")
	}
	if cfg.QueueCapacity < 0 {
		return Loaded{}, fmt.Errorf("queueCapacity must be >= 0")
	}

	loaded := Loaded{
		Relay:         defaultRelay,
		DatabasePath:  defaultDatabasePath,
		Workers:       defaultWorkers,
		QueueCapacity: defaultQueueCapacity,
		PopTimeout:    defaultPopTimeout,
		RetryBackoff:  defaultRetryBackoff,
		StatsInterval: defaultStatsInterval,
	}
	if cfg.Relay != "" {
		loaded.Relay = cfg.Relay
	}
	if cfg.DatabasePath != "" {
		loaded.DatabasePath = cfg.DatabasePath
	}
	if cfg.Workers > 0 {
		loaded.Workers = cfg.Workers
	}
	if cfg.QueueCapacity > 0 {
		loaded.QueueCapacity = cfg.QueueCapacity
	}
	if cfg.PopTimeoutMS > 0 {
		loaded.PopTimeout = time.Duration(cfg.PopTimeoutMS) * time.Millisecond
	}
	if cfg.RetryBackoffMS > 0 {
		loaded.RetryBackoff = time.Duration(cfg.RetryBackoffMS) * time.Millisecond
	}
	if cfg.StatsIntervalMS > 0 {
		loaded.StatsInterval = time.Duration(cfg.StatsIntervalMS) * time.Millisecond
	}
	return loaded, nil
}
