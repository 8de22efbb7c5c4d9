package sales

import "context"

// Recalculation triggers, reported as a metric attribute
const (
	TriggerHTTP      = "http"
	TriggerPubSub    = "pubsub"
	TriggerScheduler = "scheduler"
)

type triggerKey struct{}

// WithTrigger records what started a recalculation
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok {
		return t
	}
	return TriggerHTTP
}
