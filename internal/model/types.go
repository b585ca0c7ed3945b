package model

import (
    "bytes"
    "encoding/json"
    "fmt"
)

const (
    DefaultServiceSec = 300
    DefaultPriority   = 100
)

// RoutingRequest is the typed view of a solve payload. Remote backends get the raw
// payload instead so fields not modelled here still reach them.
type RoutingRequest struct {
    Vehicles []Vehicle       `json:"vehicles"`
    Jobs     []Job           `json:"jobs"`
    Matrix   [][]float64     `json:"matrix,omitempty"`
    Options  map[string]any  `json:"options,omitempty"`
}

type Vehicle struct {
    ID       int        `json:"id"`
    Start    Location   `json:"start"`
    End      *Location  `json:"end,omitempty"`
    Capacity IntOrSlice `json:"capacity,omitempty"`
    Skills   []int      `json:"skills,omitempty"`
}

// Job is a delivery or pickup task, not an async execution job.
type Job struct {
    ID       int        `json:"id"`
    Location Location   `json:"location"`
    Service  int        `json:"service"`
    Delivery IntOrSlice `json:"delivery,omitempty"`
    Pickup   IntOrSlice `json:"pickup,omitempty"`
    Skills   []int      `json:"skills,omitempty"`
    Priority int        `json:"priority"`
}

// Location accepts [lng, lat] or {"lat":..,"lng":..} on the wire.
type Location struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

// LatLng returns the location in the [lat, lng] order used by response steps.
func (l Location) LatLng() [2]float64 { return [2]float64{l.Lat, l.Lng} }

// LngLat returns the location in the [lng, lat] order used by remote backends.
func (l Location) LngLat() [2]float64 { return [2]float64{l.Lng, l.Lat} }

func (l *Location) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if len(b) > 0 && b[0] == '[' {
        var pair []float64
        if err := json.Unmarshal(b, &pair); err != nil {
            return fmt.Errorf("location pair: %w", err)
        }
        if len(pair) < 2 {
            return fmt.Errorf("location pair needs [lng, lat], got %d values", len(pair))
        }
        l.Lng, l.Lat = pair[0], pair[1]
        return nil
    }
    var obj struct {
        Lat *float64 `json:"lat"`
        Lng *float64 `json:"lng"`
    }
    if err := json.Unmarshal(b, &obj); err != nil {
        return fmt.Errorf("location: %w", err)
    }
    if obj.Lat == nil || obj.Lng == nil {
        return fmt.Errorf("location requires both lat and lng")
    }
    l.Lat, l.Lng = *obj.Lat, *obj.Lng
    return nil
}

// IntOrSlice holds a scalar-or-vector amount (capacity, delivery, pickup).
type IntOrSlice []int

func (v *IntOrSlice) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if bytes.Equal(b, []byte("null")) { *v = nil; return nil }
    if len(b) > 0 && b[0] == '[' {
        var xs []int
        if err := json.Unmarshal(b, &xs); err != nil { return err }
        *v = xs
        return nil
    }
    var n int
    if err := json.Unmarshal(b, &n); err != nil { return err }
    *v = IntOrSlice{n}
    return nil
}

// First returns the first dimension and whether one is present.
func (v IntOrSlice) First() (int, bool) {
    if len(v) == 0 { return 0, false }
    return v[0], true
}

func (v *Vehicle) UnmarshalJSON(b []byte) error {
    type alias Vehicle
    var raw struct {
        alias
        ID    *int      `json:"id"`
        Start *Location `json:"start"`
    }
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    if raw.ID == nil { return &ValidationError{Field: "vehicles[].id", Msg: "field required"} }
    if raw.Start == nil { return &ValidationError{Field: "vehicles[].start", Msg: "field required"} }
    *v = Vehicle(raw.alias)
    v.ID, v.Start = *raw.ID, *raw.Start
    return nil
}

func (j *Job) UnmarshalJSON(b []byte) error {
    type alias Job
    raw := struct {
        alias
        ID       *int      `json:"id"`
        Location *Location `json:"location"`
    }{alias: alias{Service: DefaultServiceSec, Priority: DefaultPriority}}
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    if raw.ID == nil { return &ValidationError{Field: "jobs[].id", Msg: "field required"} }
    if raw.Location == nil { return &ValidationError{Field: "jobs[].location", Msg: "field required"} }
    *j = Job(raw.alias)
    j.ID, j.Location = *raw.ID, *raw.Location
    return nil
}

// RoutingResponse is the normalized solve result. Code 0 means success.
type RoutingResponse struct {
    Code       int          `json:"code"`
    Summary    Summary      `json:"summary"`
    Unassigned []Unassigned `json:"unassigned"`
    Routes     []Route      `json:"routes"`
    Engine     string       `json:"engine,omitempty"`
}

type Summary struct {
    Cost        int   `json:"cost"`
    Unassigned  int   `json:"unassigned"`
    Delivery    []int `json:"delivery"`
    Amount      []int `json:"amount"`
    Pickup      []int `json:"pickup"`
    Service     int   `json:"service"`
    Duration    int   `json:"duration"`
    WaitingTime int   `json:"waiting_time"`
    Priority    int   `json:"priority"`
    Distance    *int  `json:"distance,omitempty"`
}

type Unassigned struct {
    ID       int        `json:"id"`
    Location [2]float64 `json:"location"` // [lat, lng]
}

type Route struct {
    Vehicle  int    `json:"vehicle"`
    Cost     int    `json:"cost"`
    Service  int    `json:"service"`
    Duration int    `json:"duration"`
    Steps    []Step `json:"steps"`
    Geometry string `json:"geometry,omitempty"`
}

type StepType string

const (
    StepStart StepType = "start"
    StepJob   StepType = "job"
    StepEnd   StepType = "end"
)

type Step struct {
    Type     StepType   `json:"type"`
    Location [2]float64 `json:"location"` // [lat, lng]
    Job      *int       `json:"job,omitempty"`
    Arrival  *int       `json:"arrival,omitempty"`
    Duration *int       `json:"duration,omitempty"`
}
