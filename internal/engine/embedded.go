package engine

import (
	"context"
	"time"

	"routeplay/internal/model"
	"routeplay/internal/opt"
	"routeplay/internal/schema"
)

// Embedded runs the in-process solver. The timeout becomes the improvement deadline;
// the first greedy solution is always returned in full.
type Embedded struct{}

func (Embedded) Solve(ctx context.Context, payload map[string]any, timeout time.Duration) (any, error) {
	if err := schema.ValidateRoutingRequest(payload); err != nil {
		return nil, &model.ValidationError{Msg: err.Error()}
	}
	req, err := model.ParseRoutingRequest(payload)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp := opt.Solve(ctx, req)
	return resp, nil
}
