package model

import (
    "encoding/json"
    "errors"
    "reflect"
    "strings"
    "testing"
)

func TestLocationPairAndObject(t *testing.T) {
    var a, b Location
    if err := json.Unmarshal([]byte(`[126.9, 37.5]`), &a); err != nil { t.Fatalf("pair: %v", err) }
    if a != (Location{Lat: 37.5, Lng: 126.9}) { t.Fatalf("pair normalized wrong: %+v", a) }
    if err := json.Unmarshal([]byte(`{"lat":37.5,"lng":126.9}`), &b); err != nil { t.Fatalf("object: %v", err) }
    if a != b { t.Fatalf("encodings disagree: %+v vs %+v", a, b) }
    if err := json.Unmarshal([]byte(`{"lat":37.5}`), &b); err == nil { t.Fatal("missing lng should fail") }
    if err := json.Unmarshal([]byte(`[1]`), &b); err == nil { t.Fatal("short pair should fail") }
}

func TestRewriteProfilesNestedAndIdempotent(t *testing.T) {
    in := map[string]any{
        "profile": LegacyProfile,
        "vehicles": []any{
            map[string]any{"id": 1, "profile": LegacyProfile},
            map[string]any{"id": 2, "profile": "bike"},
        },
        "options": map[string]any{"deep": []any{[]any{map[string]any{"profile": LegacyProfile}}}},
        "note": LegacyProfile,
    }
    out := RewriteProfiles(in).(map[string]any)
    if out["profile"] != CanonicalProfile { t.Fatalf("top-level not rewritten: %v", out["profile"]) }
    vs := out["vehicles"].([]any)
    if vs[0].(map[string]any)["profile"] != CanonicalProfile { t.Fatal("vehicle profile not rewritten") }
    if vs[1].(map[string]any)["profile"] != "bike" { t.Fatal("other profiles must be kept") }
    deep := out["options"].(map[string]any)["deep"].([]any)[0].([]any)[0].(map[string]any)
    if deep["profile"] != CanonicalProfile { t.Fatal("deep profile not rewritten") }
    if out["note"] != LegacyProfile { t.Fatal("only profile keys are rewritten") }
    if in["profile"] != LegacyProfile { t.Fatal("input was mutated") }
    if again := RewriteProfiles(out); !reflect.DeepEqual(again, out) { t.Fatal("rewrite not idempotent") }
}

func TestEnsureGeometry(t *testing.T) {
    orig := map[string]any{"options": map[string]any{"c": true}}
    got := EnsureGeometry(orig)
    opts := got["options"].(map[string]any)
    if opts["g"] != true || opts["c"] != true { t.Fatalf("options = %v", opts) }
    if _, ok := orig["options"].(map[string]any)["g"]; ok { t.Fatal("original options aliased") }

    got = EnsureGeometry(map[string]any{"options": "junk"})
    if got["options"].(map[string]any)["g"] != true { t.Fatal("non-object options not replaced") }
    got = EnsureGeometry(map[string]any{})
    if got["options"].(map[string]any)["g"] != true { t.Fatal("missing options not added") }
}

func TestParseRoutingRequestDefaults(t *testing.T) {
    p, err := DecodePayload(strings.NewReader(`{
        "vehicles":[{"id":1,"start":[127.0,37.5],"capacity":4}],
        "jobs":[{"id":10,"location":{"lat":37.51,"lng":127.01},"delivery":[2]}]
    }`))
    if err != nil { t.Fatalf("decode: %v", err) }
    req, err := ParseRoutingRequest(p)
    if err != nil { t.Fatalf("parse: %v", err) }
    v := req.Vehicles[0]
    if v.End == nil || *v.End != v.Start { t.Fatalf("end should default to start: %+v", v.End) }
    if c, _ := v.Capacity.First(); c != 4 { t.Fatalf("capacity = %v", v.Capacity) }
    j := req.Jobs[0]
    if j.Service != DefaultServiceSec || j.Priority != DefaultPriority { t.Fatalf("defaults not applied: %+v", j) }
}

func TestParseRoutingRequestMissingID(t *testing.T) {
    _, err := ParseRoutingRequest(map[string]any{"vehicles": []any{map[string]any{"start": []any{1.0, 2.0}}}})
    var ve *ValidationError
    if !errors.As(err, &ve) { t.Fatalf("want ValidationError, got %v", err) }
    if ve.Field != "vehicles[].id" { t.Fatalf("field = %q", ve.Field) }
}

func TestDecodePayloadRejectsNonObject(t *testing.T) {
    if _, err := DecodePayload(strings.NewReader(`[1,2]`)); err == nil { t.Fatal("array body accepted") }
    if _, err := DecodePayload(strings.NewReader(`{`)); err == nil { t.Fatal("broken JSON accepted") }
}

func TestMapMatchingRequestValidate(t *testing.T) {
    if err := (MapMatchingRequest{Trajectory: [][]float64{{1, 2, 0, 5, 1}}}).Validate(); err == nil {
        t.Fatal("single point should fail")
    }
    if err := (MapMatchingRequest{Trajectory: [][]float64{{1, 2}, {1.1, 2.1}}}).Validate(); err != nil {
        t.Fatalf("two points: %v", err)
    }
}
