package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"routeplay/internal/model"
)

const maxErrorBody = 4 << 10

// Remote proxies a payload to an HTTP routing backend. Every call builds its own client.
type Remote struct {
	Backend string
	URL     string
	APIKey  string
}

func (r Remote) Solve(ctx context.Context, payload map[string]any, timeout time.Duration) (any, error) {
	wire := ToWire(model.EnsureGeometry(payload))
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, &model.ValidationError{Msg: "encode request: " + err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Backend: r.Backend, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.APIKey != "" {
		req.Header.Set("X-API-Key", r.APIKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Backend: r.Backend, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &EngineError{Backend: r.Backend, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &TransportError{Backend: r.Backend, Err: fmt.Errorf("decode response: %w", err)}
	}
	return FromWire(out, r.Backend), nil
}

// ToWire rewrites {lat,lng} location objects under vehicles and jobs to the [lng, lat]
// pairs remote backends expect. Other fields are forwarded as they are.
func ToWire(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	out["vehicles"] = mapItems(payload["vehicles"], "start", "end")
	out["jobs"] = mapItems(payload["jobs"], "location")
	if _, ok := payload["vehicles"]; !ok {
		delete(out, "vehicles")
	}
	if _, ok := payload["jobs"]; !ok {
		delete(out, "jobs")
	}
	return out
}

func mapItems(v any, keys ...string) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			out[i] = it
			continue
		}
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		for _, k := range keys {
			if loc, ok := m[k].(map[string]any); ok {
				if lat, okLat := loc["lat"]; okLat {
					if lng, okLng := loc["lng"]; okLng {
						cp[k] = []any{lng, lat}
					}
				}
			}
		}
		out[i] = cp
	}
	return out
}

// FromWire normalizes a backend reply: unwraps the preprocessor envelope
// {status, message, data:{...}}, swaps step and unassigned locations to [lat, lng]
// and names the engine when the backend did not.
func FromWire(v any, backend string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if data, ok := m["data"].(map[string]any); ok {
		if _, hasCode := m["code"]; !hasCode {
			if _, inner := data["code"]; inner {
				m = data
			}
		}
	}
	out := make(map[string]any, len(m)+1)
	for k, val := range m {
		out[k] = val
	}
	if routes, ok := m["routes"].([]any); ok {
		nr := make([]any, len(routes))
		for i, rt := range routes {
			rm, ok := rt.(map[string]any)
			if !ok {
				nr[i] = rt
				continue
			}
			cp := make(map[string]any, len(rm))
			for k, val := range rm {
				cp[k] = val
			}
			if steps, ok := rm["steps"].([]any); ok {
				cp["steps"] = swapLocations(steps)
			}
			nr[i] = cp
		}
		out["routes"] = nr
	}
	if un, ok := m["unassigned"].([]any); ok {
		out["unassigned"] = swapLocations(un)
	}
	if _, ok := out["engine"]; !ok {
		out["engine"] = backend
	}
	return out
}

func swapLocations(items []any) []any {
	out := make([]any, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			out[i] = it
			continue
		}
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		if loc, ok := m["location"].([]any); ok && len(loc) >= 2 {
			swapped := append([]any{loc[1], loc[0]}, loc[2:]...)
			cp["location"] = swapped
		}
		out[i] = cp
	}
	return out
}
