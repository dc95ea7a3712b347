package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/levinOo/stripedpool/internal/adminhttp"
	"github.com/levinOo/stripedpool/pool"
	"github.com/levinOo/stripedpool/resource/httpclient"
)

// statsForwarder periodically POSTs a combined snapshot of every
// registered pool's StatsJSON to an audit endpoint, borrowing the
// client it posts with from clients on each tick via httpclient.Notify
// rather than holding one outside the pool's own accounting. Same
// ticker/stopCh/done shape as the teacher's own PeriodicSaver,
// repurposed from saving to disk to forwarding over HTTP.
type statsForwarder struct {
	pools    map[string]adminhttp.StatsSource
	clients  *pool.Pool[*retryablehttp.Client]
	url      string
	interval time.Duration
	sugar    *zap.SugaredLogger
	stopCh   chan struct{}
	done     chan struct{}
}

func newStatsForwarder(pools map[string]adminhttp.StatsSource, clients *pool.Pool[*retryablehttp.Client], url string, interval time.Duration, sugar *zap.SugaredLogger) *statsForwarder {
	return &statsForwarder{
		pools:    pools,
		clients:  clients,
		url:      url,
		interval: interval,
		sugar:    sugar,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (f *statsForwarder) Start() {
	go func() {
		defer close(f.done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		f.sugar.Infow("starting stats forwarder", "interval", f.interval, "url", f.url)

		for {
			select {
			case <-ticker.C:
				if err := f.forwardOnce(); err != nil {
					f.sugar.Errorw("failed to forward stats snapshot", "error", err)
				}
			case <-f.stopCh:
				f.sugar.Debugw("stopping stats forwarder")
				return
			}
		}
	}()
}

func (f *statsForwarder) Stop() {
	if f.stopCh != nil {
		close(f.stopCh)
		<-f.done
	}
}

func (f *statsForwarder) forwardOnce() error {
	snapshot := snapshotJSON(f.pools)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpclient.Notify(ctx, f.clients, f.url, snapshot)
}

func snapshotJSON(pools map[string]adminhttp.StatsSource) []byte {
	buf := []byte("{")
	i := 0
	for label, p := range pools {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, fmt.Sprintf("%q:%s", label, p.StatsJSON())...)
		i++
	}
	buf = append(buf, '}')
	return buf
}
