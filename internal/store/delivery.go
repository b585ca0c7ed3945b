package store

import "time"

type WebhookDelivery struct {
    ID            string     `json:"id"`
    JobID         string     `json:"job_id"`
    EventType     string     `json:"event_type"`
    URL           string     `json:"url"`
    Payload       []byte     `json:"-"`
    Status        string     `json:"status"`
    Attempts      int        `json:"attempts"`
    NextAttemptAt time.Time  `json:"next_attempt_at"`
    LastError     string     `json:"last_error,omitempty"`
    ResponseCode  int        `json:"response_code,omitempty"`
    DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
}
