// Package domain holds the values shared between the device link, the
// telemetry sinks and the supervision API.
package domain

import "time"

// Reading is the latest known value of one telemetry metric.
//
// Metric names follow the remote store schema (fan_state, air_temp, ...),
// not the device's action names.
type Reading struct {
	// Name is the metric name. Example: water_temp
	Name string `json:"name"`

	// Value is kept verbatim as reported by the device. Example: 19.25
	Value string `json:"value"`

	// RecordedAt is when the host received the value.
	RecordedAt time.Time `json:"recorded_at"`
}

// Sample is one entry of a metric history.
type Sample struct {
	Value      string    `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IsStale reports whether the reading is older than maxAge at now.
// A zero maxAge never expires.
func (r Reading) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 || r.RecordedAt.IsZero() {
		return false
	}
	return now.Sub(r.RecordedAt) > maxAge
}
