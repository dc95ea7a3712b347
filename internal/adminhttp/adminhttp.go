// Package adminhttp is the pool control binary's read-only admin
// surface: a chi router exposing per-pool stats and host telemetry,
// logged through the same request-logging middleware shape as the
// teacher's own handler package.
package adminhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/levinOo/stripedpool/internal/poollog"
)

// StatsSource is anything that can report its own stripe-level
// occupancy as a JSON array, the shape pool.Pool.StatsJSON produces.
// Named separately from *pool.Pool so the router can be exercised in
// tests without constructing a real pool.
type StatsSource interface {
	StatsJSON() string
}

// NewRouter builds the admin HTTP surface. pools maps a label (e.g.
// "postgres", "http") to the pool it reports on; every registered pool
// is reachable under GET /stats/{label}, and GET /stats returns all of
// them combined with host telemetry from gopsutil.
func NewRouter(pools map[string]StatsSource, sugar *zap.SugaredLogger) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/stats", withLogging(statsHandler(pools), sugar))
	r.Get("/stats/{label}", withLogging(poolStatsHandler(pools), sugar))
	r.Get("/healthz", withLogging(healthHandler(), sugar))

	return r
}

func statsHandler(pools map[string]StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, err := hostTelemetry()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"host":%s,"pools":{`, host)
		i := 0
		for label, p := range pools {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, "%q:%s", label, p.StatsJSON())
			i++
		}
		fmt.Fprint(w, "}}")
	}
}

func poolStatsHandler(pools map[string]StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		label := chi.URLParam(r, "label")
		p, ok := pools[label]
		if !ok {
			http.Error(w, "unknown pool: "+label, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, p.StatsJSON())
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

// hostTelemetry reports coarse host memory/CPU figures, mirroring the
// teacher's own agent-side CollectAdditionalMetrics but surfaced
// through the admin router instead of pushed to a collector.
func hostTelemetry() (string, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "", fmt.Errorf("collect memory telemetry: %w", err)
	}
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return "", fmt.Errorf("collect cpu telemetry: %w", err)
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	payload := struct {
		TotalMemory uint64  `json:"totalMemory"`
		FreeMemory  uint64  `json:"freeMemory"`
		CPUPercent  float64 `json:"cpuPercent"`
		NumCPU      int     `json:"numCPU"`
		Goroutines  int     `json:"goroutines"`
	}{
		TotalMemory: vm.Total,
		FreeMemory:  vm.Available,
		CPUPercent:  cpuPct,
		NumCPU:      runtime.NumCPU(),
		Goroutines:  runtime.NumGoroutine(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode host telemetry: %w", err)
	}
	return string(encoded), nil
}

func withLogging(h http.HandlerFunc, sugar *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		data := &poollog.ResponseData{}
		lw := &poollog.LoggingRW{ResponseWriter: w, ResponseData: data}

		h.ServeHTTP(lw, r)

		sugar.Infow("admin_request",
			"uri", r.RequestURI,
			"method", r.Method,
			"duration", time.Since(start),
			"status", data.Status,
			"size", data.Size,
		)
	}
}
