package apimodel

type Status struct {
	Mode            string      `json:"mode"`
	Coordinate      Coordinate  `json:"coordinate"`
	LastInteractive Coordinate  `json:"last_interactive"`
	Image           string      `json:"image"`
	ImageCached     bool        `json:"image_cached"`
	ImageError      string      `json:"image_error,omitempty"`
	SwitchesKnown   bool        `json:"switches_known"`
	LastChange      string      `json:"last_change"`
	Cache           CacheStatus `json:"cache"`
}

// CacheStatus describes the image cache. Images are listed most recently used first.
type CacheStatus struct {
	Length     int      `json:"length"`
	Capacity   int      `json:"capacity"`
	Hits       int64    `json:"hits"`
	Misses     int64    `json:"misses"`
	Evictions  int64    `json:"evictions"`
	LoadErrors int64    `json:"load_errors"`
	Images     []string `json:"images"`
}

// DisplayEvent is published each time the displayed coordinate changes.
type DisplayEvent struct {
	Timestamp  string     `json:"timestamp"`
	Mode       string     `json:"mode"`
	Reason     string     `json:"reason"`
	Coordinate Coordinate `json:"coordinate"`
	Image      string     `json:"image"`
	Error      string     `json:"error,omitempty"`
}
