package redis

const (
	// KeyPrefixMetric is the prefix for the latest value of a metric
	KeyPrefixMetric = "vertx:metric:"
	// KeyHistorySuffix is appended to a metric key for its history list
	KeyHistorySuffix = ":history"
	// KeyAllMetrics is the key for the set of all metric names
	KeyAllMetrics = "vertx:metrics:all"
)

// MetricKey returns the Redis key holding the latest sample of a metric
func MetricKey(name string) string {
	return KeyPrefixMetric + name
}

// HistoryKey returns the Redis key of a metric's history list
func HistoryKey(name string) string {
	return KeyPrefixMetric + name + KeyHistorySuffix
}

// AllMetricsKey returns the key for the set of all metric names
func AllMetricsKey() string {
	return KeyAllMetrics
}
