package api

import (
    "sync"
)

// JobEvent is one job state change as streamed to subscribers.
type JobEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

type EventBroker interface {
    Subscribe(jobID string) chan JobEvent
    Unsubscribe(jobID string, ch chan JobEvent)
    Publish(jobID string, evt JobEvent)
}

// Broker is the in-process EventBroker. Slow subscribers drop events rather than block publishers.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan JobEvent]struct{} // jobID -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan JobEvent]struct{}{}}
}

func (b *Broker) Subscribe(jobID string) chan JobEvent {
    ch := make(chan JobEvent, 8)
    b.mu.Lock()
    if b.subs[jobID] == nil { b.subs[jobID] = map[chan JobEvent]struct{}{} }
    b.subs[jobID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(jobID string, ch chan JobEvent) {
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[jobID]
    if _, ok := m[ch]; !ok {
        return
    }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, jobID) }
    close(ch)
}

func (b *Broker) Publish(jobID string, evt JobEvent) {
    b.mu.Lock()
    m := b.subs[jobID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
