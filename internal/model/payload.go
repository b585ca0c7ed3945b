package model

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
)

const (
    LegacyProfile    = "car_monday_adaptive"
    CanonicalProfile = "car"
)

// ValidationError reports a request that does not fit the routing schema.
type ValidationError struct {
    Field string
    Msg   string
}

func (e *ValidationError) Error() string {
    if e.Field == "" { return e.Msg }
    return e.Field + ": " + e.Msg
}

// DecodePayload reads a JSON object keeping numbers as json.Number so they are forwarded untouched.
func DecodePayload(r io.Reader) (map[string]any, error) {
    dec := json.NewDecoder(r)
    dec.UseNumber()
    var v any
    if err := dec.Decode(&v); err != nil {
        return nil, &ValidationError{Msg: "invalid JSON: " + err.Error()}
    }
    m, ok := v.(map[string]any)
    if !ok {
        return nil, &ValidationError{Msg: "request body must be a JSON object"}
    }
    return m, nil
}

// RewriteProfiles returns a copy of v where every "profile": "car_monday_adaptive" entry, at any
// depth, reads "car". Maps and slices are rebuilt; v is not modified.
func RewriteProfiles(v any) any {
    switch t := v.(type) {
    case map[string]any:
        out := make(map[string]any, len(t))
        for k, val := range t {
            if s, ok := val.(string); ok && k == "profile" && s == LegacyProfile {
                out[k] = CanonicalProfile
                continue
            }
            out[k] = RewriteProfiles(val)
        }
        return out
    case []any:
        out := make([]any, len(t))
        for i, val := range t {
            out[i] = RewriteProfiles(val)
        }
        return out
    default:
        return v
    }
}

// EnsureGeometry returns a shallow copy of payload whose options map has g=true.
// A missing or non-object options value is replaced.
func EnsureGeometry(payload map[string]any) map[string]any {
    out := make(map[string]any, len(payload)+1)
    for k, v := range payload {
        out[k] = v
    }
    opts := map[string]any{}
    if cur, ok := payload["options"].(map[string]any); ok {
        for k, v := range cur {
            opts[k] = v
        }
    }
    opts["g"] = true
    out["options"] = opts
    return out
}

// ParseRoutingRequest converts a generic payload into a RoutingRequest, applying defaults.
func ParseRoutingRequest(payload map[string]any) (RoutingRequest, error) {
    var req RoutingRequest
    b, err := json.Marshal(payload)
    if err != nil {
        return req, &ValidationError{Msg: err.Error()}
    }
    if err := json.Unmarshal(b, &req); err != nil {
        var ve *ValidationError
        if errors.As(err, &ve) {
            return req, ve
        }
        return req, &ValidationError{Msg: err.Error()}
    }
    for i := range req.Vehicles {
        if req.Vehicles[i].End == nil {
            start := req.Vehicles[i].Start
            req.Vehicles[i].End = &start
        }
    }
    if req.Vehicles == nil { req.Vehicles = []Vehicle{} }
    if req.Jobs == nil { req.Jobs = []Job{} }
    seen := map[int]struct{}{}
    for _, j := range req.Jobs {
        if _, dup := seen[j.ID]; dup {
            return req, &ValidationError{Field: "jobs[].id", Msg: fmt.Sprintf("duplicate job id %d", j.ID)}
        }
        seen[j.ID] = struct{}{}
    }
    return req, nil
}
