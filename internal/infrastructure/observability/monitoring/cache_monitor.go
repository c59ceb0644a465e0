// Package monitoring tracks hit ratios, evictions and health of the
// in-memory caches.
package monitoring

import (
	"sort"
	"sync"
	"time"
)

// Cache layers reported by the monitor
const (
	LayerCollections   = "collections"
	LayerCollectionIDs = "collection_ids"
)

// Eviction reasons
const (
	EvictionTTL    = "ttl"
	EvictionManual = "manual"
)

// CacheHealthStatus summarises a layer or the whole cache
type CacheHealthStatus string

const (
	CacheHealthy   CacheHealthStatus = "healthy"
	CacheDegraded  CacheHealthStatus = "degraded"
	CacheUnhealthy CacheHealthStatus = "unhealthy"
	CacheUnknown   CacheHealthStatus = "unknown" // no traffic yet
)

// CacheLayerMetrics represents performance metrics for a single cache layer
type CacheLayerMetrics struct {
	LayerName   string    `json:"layerName"`
	LastUpdated time.Time `json:"lastUpdated"`

	TotalRequests int64   `json:"totalRequests"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	HitRatio      float64 `json:"hitRatio"`

	TotalEvictions  int64 `json:"totalEvictions"`
	TTLEvictions    int64 `json:"ttlEvictions"`
	ManualEvictions int64 `json:"manualEvictions"`

	Health CacheHealthStatus `json:"health"`
}

// OverallCacheMetrics aggregates every layer
type OverallCacheMetrics struct {
	Uptime           time.Duration        `json:"uptime"`
	TotalRequests    int64                `json:"totalRequests"`
	TotalCacheHits   int64                `json:"totalCacheHits"`
	TotalCacheMisses int64                `json:"totalCacheMisses"`
	OverallHitRatio  float64              `json:"overallHitRatio"`
	OverallHealth    CacheHealthStatus    `json:"overallHealth"`
	WarningLayers    []string             `json:"warningLayers"`
	Layers           []*CacheLayerMetrics `json:"layers"`
}

// CacheMonitorConfig contains the health thresholds
type CacheMonitorConfig struct {
	MinHealthyHitRatio  float64 `json:"minHealthyHitRatio"`
	MinDegradedHitRatio float64 `json:"minDegradedHitRatio"`
	// MinRequests is the traffic below which a layer is not judged
	MinRequests int64 `json:"minRequests"`
}

func DefaultCacheMonitorConfig() *CacheMonitorConfig {
	return &CacheMonitorConfig{
		MinHealthyHitRatio:  0.85,
		MinDegradedHitRatio: 0.70,
		MinRequests:         20,
	}
}

// CachePerformanceMonitor tracks hits, misses and evictions per layer
type CachePerformanceMonitor struct {
	mu      sync.RWMutex
	layers  map[string]*CacheLayerMetrics
	config  *CacheMonitorConfig
	started time.Time
	now     func() time.Time
}

func NewCachePerformanceMonitor(config *CacheMonitorConfig) *CachePerformanceMonitor {
	if config == nil {
		config = DefaultCacheMonitorConfig()
	}
	return &CachePerformanceMonitor{
		layers:  make(map[string]*CacheLayerMetrics),
		config:  config,
		started: time.Now(),
		now:     time.Now,
	}
}

// getLayerMetrics returns the layer, creating it. Caller holds the lock.
func (m *CachePerformanceMonitor) getLayerMetrics(layerName string) *CacheLayerMetrics {
	l, ok := m.layers[layerName]
	if !ok {
		l = &CacheLayerMetrics{LayerName: layerName, Health: CacheUnknown}
		m.layers[layerName] = l
	}
	return l
}

// RecordCacheOperation counts one lookup against layerName
func (m *CachePerformanceMonitor) RecordCacheOperation(layerName string, hit bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.getLayerMetrics(layerName)
	l.TotalRequests++
	if hit {
		l.CacheHits++
	} else {
		l.CacheMisses++
	}
	l.HitRatio = float64(l.CacheHits) / float64(l.TotalRequests)
	l.LastUpdated = m.now()
	l.Health = m.layerHealth(l)
}

// RecordEviction counts items dropped from layerName
func (m *CachePerformanceMonitor) RecordEviction(layerName, reason string, items int) {
	if m == nil || items <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.getLayerMetrics(layerName)
	l.TotalEvictions += int64(items)
	switch reason {
	case EvictionTTL:
		l.TTLEvictions += int64(items)
	case EvictionManual:
		l.ManualEvictions += int64(items)
	}
	l.LastUpdated = m.now()
}

func (m *CachePerformanceMonitor) layerHealth(l *CacheLayerMetrics) CacheHealthStatus {
	switch {
	case l.TotalRequests < m.config.MinRequests:
		return CacheUnknown
	case l.HitRatio < m.config.MinDegradedHitRatio:
		return CacheUnhealthy
	case l.HitRatio < m.config.MinHealthyHitRatio:
		return CacheDegraded
	}
	return CacheHealthy
}

// GetLayerMetrics returns a copy of one layer; nil when it saw no traffic
func (m *CachePerformanceMonitor) GetLayerMetrics(layerName string) *CacheLayerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[layerName]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

// GetOverallMetrics aggregates the layers. The worst judged layer decides
// the overall health.
func (m *CachePerformanceMonitor) GetOverallMetrics() *OverallCacheMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := &OverallCacheMetrics{
		Uptime:        m.now().Sub(m.started),
		OverallHealth: CacheUnknown,
		WarningLayers: []string{},
	}
	for _, l := range m.layers {
		cp := *l
		out.Layers = append(out.Layers, &cp)
		out.TotalRequests += l.TotalRequests
		out.TotalCacheHits += l.CacheHits
		out.TotalCacheMisses += l.CacheMisses

		switch l.Health {
		case CacheUnhealthy:
			out.OverallHealth = CacheUnhealthy
			out.WarningLayers = append(out.WarningLayers, l.LayerName)
		case CacheDegraded:
			if out.OverallHealth != CacheUnhealthy {
				out.OverallHealth = CacheDegraded
			}
			out.WarningLayers = append(out.WarningLayers, l.LayerName)
		case CacheHealthy:
			if out.OverallHealth == CacheUnknown {
				out.OverallHealth = CacheHealthy
			}
		}
	}
	if out.TotalRequests > 0 {
		out.OverallHitRatio = float64(out.TotalCacheHits) / float64(out.TotalRequests)
	}
	sort.Slice(out.Layers, func(i, j int) bool { return out.Layers[i].LayerName < out.Layers[j].LayerName })
	sort.Strings(out.WarningLayers)
	return out
}
