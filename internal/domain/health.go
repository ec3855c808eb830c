package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// UpstreamMetrics is returned by GET /v1/metrics/upstream.
type UpstreamMetrics struct {
	PagesFetched      map[string]int64 `json:"pagesFetched"`
	ExternalErrors    map[string]int64 `json:"externalErrors"`
	CacheHitRate      float64          `json:"cacheHitRate"`
	SupersededResults int64            `json:"supersededResults"`
	CircuitState      string           `json:"circuitState"`
	Period            string           `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
