package logging

import "testing"

func TestFormatFields(t *testing.T) {
	if got := formatFields(); got != "" {
		t.Fatalf("empty fields: %q", got)
	}
	if got := formatFields("job", "abc", "n", 3); got != " job=abc n=3" {
		t.Fatalf("got %q", got)
	}
	if got := formatFields("dangling"); got != " dangling=(missing)" {
		t.Fatalf("odd fields: %q", got)
	}
	if got := formatFields("err", "line1\nline2"); got != " err=line1\nline2" {
		t.Fatalf("strings pass through: %q", got)
	}
	if got := formatFields("err", struct{ A string }{"x\ty"}); got != " err={x y}" {
		t.Fatalf("values are flattened: %q", got)
	}
}
