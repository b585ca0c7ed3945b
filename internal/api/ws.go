package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Job status over WebSocket, using graphql-transport-ws style framing:
// connection_init/connection_ack, subscribe {jobId}, next, complete, ping/pong.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	JobID     string         `json:"jobId"`
	Variables map[string]any `json:"variables"`
}

func (p subscribePayload) jobID() string {
	if p.JobID != "" {
		return p.JobID
	}
	if v, ok := p.Variables["jobId"].(string); ok {
		return v
	}
	return ""
}

// JobsWSHandler handles /ws/jobs
func (s *Server) JobsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		jobID string
		ch    chan JobEvent
	}
	subs := map[string]sub{}
	done := make(chan struct{})
	defer close(done)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// gorilla connections allow one concurrent writer
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(v)
	}
	writeErr := func(id, msg string) {
		p, _ := json.Marshal(map[string]string{"message": msg})
		_ = write(wsMessage{Type: "error", ID: id, Payload: p})
		_ = write(wsMessage{Type: "complete", ID: id})
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			jid := pl.jobID()
			if jid == "" {
				writeErr(msg.ID, "jobId required")
				continue
			}
			if _, dup := subs[msg.ID]; dup {
				writeErr(msg.ID, "subscription id already in use")
				continue
			}
			ch := s.Broker.Subscribe(jid)
			j, err := s.Jobs.Get(jid)
			if err != nil {
				s.Broker.Unsubscribe(jid, ch)
				writeErr(msg.ID, "job not found")
				continue
			}
			subs[msg.ID] = sub{jobID: jid, ch: ch}
			go func(id string, c chan JobEvent, first JobEvent, terminal bool) {
				send := func(evt JobEvent) error {
					payload, _ := json.Marshal(map[string]any{"data": map[string]any{"jobEvents": evt}})
					return write(wsMessage{Type: "next", ID: id, Payload: payload})
				}
				if err := send(first); err != nil || terminal {
					_ = write(wsMessage{Type: "complete", ID: id})
					return
				}
				last := first.Type
				for evt := range c {
					if evt.Type == last {
						continue
					}
					last = evt.Type
					if err := send(evt); err != nil {
						return
					}
					if evt.Type == "job.completed" || evt.Type == "job.failed" {
						break
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch, JobEvent{Type: "job." + string(j.Status), Data: jobEventData(j)}, j.Status.Terminal())
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.jobID, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.jobID, s0.ch)
		delete(subs, id)
	}
}
