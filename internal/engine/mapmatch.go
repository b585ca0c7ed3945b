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

	"routeplay/internal/logging"
	"routeplay/internal/model"
)

const (
	MapMatchingTimeout = 30 * time.Second
	mapMatchingOK      = "Map matching completed successfully"
	mapMatchingFailed  = "Map matching failed"
)

// MapMatcher forwards GPS traces to the map-matching service.
type MapMatcher struct {
	URL     string
	Timeout time.Duration
}

// Match never returns an error: failures are reported in the response body.
func (m MapMatcher) Match(ctx context.Context, req model.MapMatchingRequest) model.MapMatchingResponse {
	if err := req.Validate(); err != nil {
		return failed(err)
	}
	result, err := m.post(ctx, req)
	if err != nil {
		logging.Error("mapmatch", "request failed", "url", m.URL, "err", err)
		return failed(err)
	}
	return reshapeMatch(result, len(req.Trajectory))
}

func failed(err error) model.MapMatchingResponse {
	return model.MatchFailure(mapMatchingFailed, err)
}

func (m MapMatcher) post(ctx context.Context, req model.MapMatchingRequest) (map[string]any, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = MapMatchingTimeout
	}
	body, err := json.Marshal(map[string]any{"trajectory": req.Trajectory})
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: timeout}).Do(hreq)
	if err != nil {
		return nil, &TransportError{Backend: "map-matching", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &EngineError{Backend: "map-matching", Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Backend: "map-matching", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

// reshapeMatch maps the service reply {success, message, data:{matched_trace, summary}}
// into the public response. Points shorter than [lng, lat, ts, flag] are dropped. The summary
// stays nil when the service sent none; missing counts default to the input and matched sizes.
func reshapeMatch(result map[string]any, inputPoints int) model.MapMatchingResponse {
	data, _ := result["data"].(map[string]any)
	out := model.MapMatchingResponse{Success: true, Message: mapMatchingOK, MatchedTrace: []model.MatchedPoint{}}
	if v, ok := result["success"].(bool); ok {
		out.Success = v
	}
	if v, ok := result["message"].(string); ok && v != "" {
		out.Message = v
	}
	if trace, ok := data["matched_trace"].([]any); ok {
		for _, p := range trace {
			pt, ok := p.([]any)
			if !ok || len(pt) < 4 {
				continue
			}
			out.MatchedTrace = append(out.MatchedTrace, model.MatchedPoint{
				Longitude: num(pt[0]),
				Latitude:  num(pt[1]),
				Timestamp: num(pt[2]),
				Flag:      num(pt[3]),
			})
		}
	}
	sum, ok := data["summary"].(map[string]any)
	if !ok {
		return out
	}
	out.Summary = &model.MapMatchingSummary{
		TotalPoints:            intOr(sum["total_points"], inputPoints),
		MatchedPoints:          intOr(sum["matched_points"], len(out.MatchedTrace)),
		Confidence:             num(sum["confidence"]),
		ShapePreservationScore: num(sum["shape_preservation_score"]),
	}
	return out
}

func intOr(v any, def int) int {
	if v == nil {
		return def
	}
	return int(num(v))
}

func num(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case int:
		return float64(t)
	default:
		return 0
	}
}
