// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gallery_http_requests_total",
	Help: "Total number of HTTP requests by route and status code",
}, []string{"method", "route", "status"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "gallery_http_request_duration_seconds",
	Help:    "Histogram of HTTP request durations in seconds",
	Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
}, []string{"method", "route"})

var PhotosUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gallery_photos_uploaded_total",
	Help: "Total number of photos uploaded and persisted",
})

var PhotosDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gallery_photos_deleted_total",
	Help: "Total number of photo records deleted",
})

var MediaStoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gallery_media_store_errors_total",
	Help: "Total number of failed media store operations",
}, []string{"operation"})

var RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gallery_rate_limited_total",
	Help: "Total number of requests rejected by the rate limiter",
}, []string{"route"})
