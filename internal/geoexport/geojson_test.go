package geoexport

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"routeplay/internal/model"
)

func intp(v int) *int { return &v }

func sampleResponse() model.RoutingResponse {
	return model.RoutingResponse{
		Routes: []model.Route{{
			Vehicle: 1,
			Cost:    42,
			Steps: []model.Step{
				{Type: model.StepStart, Location: [2]float64{48.1, 11.5}},
				{Type: model.StepJob, Location: [2]float64{48.2, 11.6}, Job: intp(7), Arrival: intp(30)},
				{Type: model.StepEnd, Location: [2]float64{48.1, 11.5}},
			},
		}},
		Unassigned: []model.Unassigned{{ID: 9, Location: [2]float64{47.0, 10.0}}},
	}
}

func TestFromResponseFeatures(t *testing.T) {
	fc := FromResponse(sampleResponse())
	if len(fc.Features) != 3 {
		t.Fatalf("features = %d, want route + stop + unassigned", len(fc.Features))
	}
	line, ok := fc.Features[0].Geometry.(orb.LineString)
	if !ok || len(line) != 3 {
		t.Fatalf("first feature should be a 3-point route line, got %T", fc.Features[0].Geometry)
	}
	// GeoJSON order is [lng, lat]
	if line[1][0] != 11.6 || line[1][1] != 48.2 {
		t.Fatalf("coordinates not swapped: %v", line[1])
	}
	if fc.Features[1].Properties["job"] != 7 || fc.Features[1].Properties["kind"] != "stop" {
		t.Fatalf("bad stop props: %v", fc.Features[1].Properties)
	}
	if fc.Features[2].Properties["kind"] != "unassigned" {
		t.Fatalf("bad unassigned props: %v", fc.Features[2].Properties)
	}
}

func TestFromResultAcceptsDecodedMap(t *testing.T) {
	b, _ := json.Marshal(sampleResponse())
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fc, err := FromResult(m)
	if err != nil {
		t.Fatalf("FromResult: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	if _, err := fc.MarshalJSON(); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestFromResultRejectsNil(t *testing.T) {
	if _, err := FromResult(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
	if _, err := FromResult("not a response"); err == nil {
		t.Fatal("expected error for non-object result")
	}
}
