// Package observability reports process and chat runtime statistics
// through the structured logger at a fixed interval.
package observability

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Snapshot aggregates what the reporter logs on each tick.
type Snapshot struct {
	OnlineSessions int    `json:"online_sessions"`
	Goroutines     int    `json:"goroutines"`
	AllocMemMb     uint64 `json:"alloc_mem_mb"`
	NumGC          uint32 `json:"num_gc"`
}

// Reporter is a supervised worker. The online count comes from a provider
// function so the package stays decoupled from the registry type.
type Reporter struct {
	log      *slog.Logger
	interval time.Duration
	online   func() int
}

func NewReporter(log *slog.Logger, interval time.Duration, online func() int) *Reporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reporter{log: log, interval: interval, online: online}
}

func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context done, stopping stats reporter")
			return nil
		case <-ticker.C:
			s := r.collect()
			r.log.Info("Runtime stats",
				"online_sessions", s.OnlineSessions,
				"goroutines", s.Goroutines,
				"alloc_mem_mb", s.AllocMemMb,
				"num_gc", s.NumGC,
			)
		}
	}
}

func (r *Reporter) collect() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	online := 0
	if r.online != nil {
		online = r.online()
	}

	return Snapshot{
		OnlineSessions: online,
		Goroutines:     runtime.NumGoroutine(),
		AllocMemMb:     m.Alloc / 1024 / 1024,
		NumGC:          m.NumGC,
	}
}
