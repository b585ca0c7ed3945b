// Package main runs a demo WebSocket client that follows one async solve job.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoRequest = `{
  "vehicles": [{"id": 1, "start": {"lat": 37.5, "lng": 127.0}}, {"id": 2, "start": [127.0, 37.5]}],
  "jobs": [
    {"id": 1, "location": {"lat": 37.51, "lng": 127.01}},
    {"id": 2, "location": {"lat": 37.49, "lng": 126.99}},
    {"id": 3, "location": [127.02, 37.52]}
  ]
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := os.Getenv("SERVER")
	if server == "" {
		server = "ortools-local"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Submit an async solve
	req, _ := http.NewRequest(http.MethodPost, base+"/solve/"+server+"?async=true&timeout=30", bytes.NewReader([]byte(demoRequest)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var handle struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		log.Fatal(err)
	}
	if handle.ID == "" {
		log.Fatalf("no job id returned (HTTP %d)", resp.StatusCode)
	}
	log.Printf("Job ID: %s (%s)", handle.ID, handle.Status)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/jobs"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"jobId": handle.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" && m.ID == "1" {
				return
			}
		}
	}()

	select {
	case <-time.After(60 * time.Second):
		log.Printf("gave up waiting for job %s", handle.ID)
	case <-done:
	}
}
