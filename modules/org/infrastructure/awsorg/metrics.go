package awsorg

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opListRoots       = "ListRoots"
	opListChildren    = "ListChildren"
	opDescribeAccount = "DescribeAccount"
	opDescribeOU      = "DescribeOrganizationalUnit"
)

var (
	orgDirectoryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "directory",
		Name:      "requests_total",
		Help:      "Total number of Organizations API requests broken down by operation and result code.",
	}, []string{"operation", "result"})

	orgDirectoryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "org",
		Subsystem: "directory",
		Name:      "request_duration_seconds",
		Help:      "Latency of Organizations API requests broken down by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func observe(operation string, start time.Time, err error) {
	orgDirectoryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	orgDirectoryRequests.WithLabelValues(operation, resultCode(err)).Inc()
}

// resultCode is "ok", the provider error code, or a coarse fallback.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() != "" {
		return apiErr.ErrorCode()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
