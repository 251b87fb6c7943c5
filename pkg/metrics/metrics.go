package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "image_cache"

	// ResultSuccess labels a transform that produced output.
	ResultSuccess = "success"
	// ResultFailure labels a transform that failed.
	ResultFailure = "failure"

	OpGet = "get"
	OpSet = "set"
)

// CacheHitCounterTotal counts lookups answered from the cache.
var CacheHitCounterTotal = MustRegisterCounter("cache", "hits_total", "Number of cache hits.")

// CacheMissCounterTotal counts lookups that fell through to the repository.
var CacheMissCounterTotal = MustRegisterCounter("cache", "misses_total", "Number of cache misses.")

// CacheErrorCounterTotal counts store failures swallowed by the gateway.
// [op].
var CacheErrorCounterTotal = MustRegisterCounterVec("cache", "errors_total", "Number of cache store errors ignored.", "op")

// CacheShareCounterTotal counts transforms shared between concurrent identical requests.
var CacheShareCounterTotal = MustRegisterCounter("cache", "shared_total", "Number of results shared by single-flight de-duplication.")

// TransformCounterTotal counts transform pipeline runs.
// [result].
var TransformCounterTotal = MustRegisterCounterVec("transform", "total", "Number of image transforms.", "result")

// TransformDurationHistogram tracks decode, resize and encode time.
var TransformDurationHistogram = MustRegisterHistogram("transform", "duration_seconds", "Duration of image transforms.")

// HTTPRequestCounterTotal counts served requests.
// [route, code].
var HTTPRequestCounterTotal = MustRegisterCounterVec("http", "requests_total", "Number of HTTP requests.", "route", "code")

// MustRegisterCounter creates and registers a counter.
func MustRegisterCounter(component, name, help string) prometheus.Counter {
	m := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(m)
	return m
}

// MustRegisterCounterVec creates and registers a counter vector.
func MustRegisterCounterVec(component, name, help string, labelNames ...string) *prometheus.CounterVec {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	}, labelNames)
	prometheus.MustRegister(m)
	return m
}

// MustRegisterHistogram creates and registers a histogram with default buckets.
func MustRegisterHistogram(component, name, help string) prometheus.Histogram {
	m := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	})
	prometheus.MustRegister(m)
	return m
}
