package logging

import (
	"context"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if id := CampaignIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("campaign.id", id))
	}
	if cycle, ok := CycleFromContext(ctx); ok {
		fields = append(fields, zap.Int("cycle", cycle))
	}

	return fields
}

// Context key types
type campaignCtxKey struct{}
type cycleCtxKey struct{}

// WithCampaignID tags every log line under ctx with the campaign run id.
func WithCampaignID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, campaignCtxKey{}, id)
}

// CampaignIDFromContext extracts the campaign id from context.
func CampaignIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(campaignCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCycle tags every log line under ctx with the 1-based cycle number.
func WithCycle(ctx context.Context, cycle int) context.Context {
	return context.WithValue(ctx, cycleCtxKey{}, cycle)
}

// CycleFromContext extracts the cycle number from context.
func CycleFromContext(ctx context.Context) (int, bool) {
	cycle, ok := ctx.Value(cycleCtxKey{}).(int)
	return cycle, ok
}
