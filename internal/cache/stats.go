package cache

// Stats holds cache performance metrics.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Overwrites int64   `json:"overwrites"`
	Entries    int     `json:"entries"`
	HitRate    float64 `json:"hit_rate"`
}
