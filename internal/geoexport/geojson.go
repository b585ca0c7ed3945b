// Package geoexport renders solve results as GeoJSON for map frontends.
package geoexport

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"routeplay/internal/model"
)

// FromResult builds a FeatureCollection from a job result. result is either a typed
// RoutingResponse or the decoded map a remote backend returned.
func FromResult(result any) (*geojson.FeatureCollection, error) {
	resp, err := asResponse(result)
	if err != nil {
		return nil, err
	}
	return FromResponse(resp), nil
}

// FromResponse emits one LineString per route, one Point per job stop and one Point per
// unassigned job. Response locations are [lat, lng]; GeoJSON wants [lng, lat].
func FromResponse(resp model.RoutingResponse) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rt := range resp.Routes {
		line := make(orb.LineString, 0, len(rt.Steps))
		for _, st := range rt.Steps {
			line = append(line, point(st.Location))
		}
		if len(line) >= 2 {
			f := geojson.NewFeature(line)
			f.Properties["kind"] = "route"
			f.Properties["vehicle"] = rt.Vehicle
			f.Properties["cost"] = rt.Cost
			f.Properties["duration"] = rt.Duration
			f.Properties["service"] = rt.Service
			fc.Append(f)
		}
		for _, st := range rt.Steps {
			if st.Type != model.StepJob {
				continue
			}
			f := geojson.NewFeature(point(st.Location))
			f.Properties["kind"] = "stop"
			f.Properties["vehicle"] = rt.Vehicle
			if st.Job != nil {
				f.Properties["job"] = *st.Job
			}
			if st.Arrival != nil {
				f.Properties["arrival"] = *st.Arrival
			}
			fc.Append(f)
		}
	}
	for _, u := range resp.Unassigned {
		f := geojson.NewFeature(point(u.Location))
		f.Properties["kind"] = "unassigned"
		f.Properties["job"] = u.ID
		fc.Append(f)
	}
	return fc
}

func point(latLng [2]float64) orb.Point { return orb.Point{latLng[1], latLng[0]} }

func asResponse(result any) (model.RoutingResponse, error) {
	switch r := result.(type) {
	case model.RoutingResponse:
		return r, nil
	case *model.RoutingResponse:
		if r == nil {
			return model.RoutingResponse{}, fmt.Errorf("geoexport: empty result")
		}
		return *r, nil
	case nil:
		return model.RoutingResponse{}, fmt.Errorf("geoexport: empty result")
	}
	b, err := json.Marshal(result)
	if err != nil {
		return model.RoutingResponse{}, fmt.Errorf("geoexport: encode result: %w", err)
	}
	var resp model.RoutingResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return model.RoutingResponse{}, fmt.Errorf("geoexport: result is not a routing response: %w", err)
	}
	return resp, nil
}
