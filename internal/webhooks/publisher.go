package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"routeplay/internal/logging"
	"routeplay/internal/store"
)

const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues one callback to url. Delivery happens on the Worker.
func (p *Publisher) Emit(ctx context.Context, jobID, eventType, url string, data any) {
	if url == "" {
		return
	}
	payload := map[string]any{
		"id":    "evt_" + jobID + "_" + eventType,
		"type":  eventType,
		"jobId": jobID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("webhooks", "encode event", "job", jobID, "err", err)
		return
	}
	if _, err := p.Store.EnqueueWebhook(ctx, jobID, eventType, url, body); err != nil {
		logging.Error("webhooks", "enqueue", "job", jobID, "err", err)
	}
}
