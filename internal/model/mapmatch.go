package model

// MapMatchingRequest carries a GPS trace; each point is [lng, lat, timestamp, accuracy, speed].
type MapMatchingRequest struct {
	Trajectory [][]float64 `json:"trajectory"`
}

// Validate checks the minimal trace shape the matching service accepts.
func (r MapMatchingRequest) Validate() error {
	if len(r.Trajectory) < 2 {
		return &ValidationError{Field: "trajectory", Msg: "at least 2 points required"}
	}
	for _, p := range r.Trajectory {
		if len(p) < 2 {
			return &ValidationError{Field: "trajectory", Msg: "each point needs at least [lng, lat]"}
		}
	}
	return nil
}

type MatchedPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Timestamp float64 `json:"timestamp"`
	// Flag: 0.5 selective correction, 1.0 original kept, 1.5 smoothed, 2.0 generated, 2.5 interpolated.
	Flag float64 `json:"flag"`
}

type MapMatchingSummary struct {
	TotalPoints            int     `json:"total_points"`
	MatchedPoints          int     `json:"matched_points"`
	Confidence             float64 `json:"confidence"`
	ShapePreservationScore float64 `json:"shape_preservation_score"`
}

type MapMatchingResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	MatchedTrace []MatchedPoint      `json:"matched_trace"`
	Summary      *MapMatchingSummary `json:"summary"`
	Error        string              `json:"error,omitempty"`
}

// MatchFailure is the body returned when a trace could not be matched. The trace is empty, not absent.
func MatchFailure(message string, err error) MapMatchingResponse {
	return MapMatchingResponse{Success: false, Message: message, MatchedTrace: []MatchedPoint{}, Error: err.Error()}
}
