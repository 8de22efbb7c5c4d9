package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelCountry    = "country"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelTrigger    = "trigger"
)

// MaxLabelValueLength bounds label values before they reach Pyroscope
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels. Every value would
// open a new series in Pyroscope.
var highCardinalityLabels = map[string]bool{
	"plan_id":        true,
	"visit_id":       true,
	"salesperson_id": true,
	"client_id":      true,
	"message_id":     true,
	"request_id":     true,
	"trace_id":       true,
	"span_id":        true,
}

// WithProfilingLabels runs fn with pprof labels attached to ctx, so CPU and
// allocation samples taken inside fn can be filtered by them in Pyroscope.
// Labels also apply when the profiler is disabled; they cost a context value.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns key/value pairs sorted by key, without empty or
// high-cardinality entries and with values truncated
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		value := labels[k]
		key := sanitizeLabelKey(k)
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

// sanitizeLabelKey lower-cases key and keeps only [a-z0-9_]
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// HTTPRequestLabels builds the labels for one routed request
func HTTPRequestLabels(controller, route, method, country string) map[string]string {
	labels := make(map[string]string, 4)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	if country != "" {
		labels[ProfilingLabelCountry] = country
	}
	return labels
}

// OperationLabels builds labels for a named background or service operation
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		labels[k] = v
	}
	labels[ProfilingLabelOperation] = operation
	return labels
}
