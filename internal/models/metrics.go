package models

import "time"

// SystemMetrics is a point-in-time summary of process counters for the admin dashboard.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	ApplicationsSubmitted    uint64    `json:"applicationsSubmitted"`
	RelayConnections         int64     `json:"relayConnections"`
	RelayDropped             uint64    `json:"relayDropped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
