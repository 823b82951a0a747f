package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// SystemStatus is the response of GET /system/status.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	Node          string         `json:"node"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Config        ConfigMetrics  `json:"config"`
	RemoteNodes   int            `json:"remote_nodes"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConfigMetrics summarises the in-memory snapshot.
type ConfigMetrics struct {
	Sequence     uint64                      `json:"sequence"`
	Instances    map[nodeconfig.Category]int `json:"instances"`
	Unconfigured int                         `json:"unconfigured"`
	IRBlaster    bool                        `json:"ir_blaster"`
	IRTargets    int                         `json:"ir_targets"`
}

// handleSystemStatus returns runtime and config statistics.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cfg, _, seq := s.store.View()
	cm := ConfigMetrics{
		Sequence:  seq,
		Instances: make(map[nodeconfig.Category]int, 2),
	}
	for _, category := range nodeconfig.AllCategories() {
		cm.Instances[category] = cfg.Count(category)
	}
	for _, inst := range cfg.Instances {
		if !inst.Configured() {
			cm.Unconfigured++
		}
	}
	if cfg.IRBlaster != nil {
		cm.IRBlaster = true
		cm.IRTargets = len(cfg.IRBlaster.Target)
	}

	writeJSON(w, http.StatusOK, SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		Node:          s.service.Node(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket:   WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Config:      cm,
		RemoteNodes: len(s.resolver.Remote().Nodes),
	})
}
