package classify

import (
	"encoding/json"
	"testing"
)

func TestPriority_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p         Priority
		wantStr   string
		wantLabel string
	}{
		{P1, "P1", "resuscitation"},
		{P2, "P2", "emergent"},
		{P3, "P3", "urgent"},
		{P4, "P4", "less urgent"},
		{P5, "P5", "non-urgent"},
		{Priority(0), "Priority(0)", "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.wantStr {
			t.Errorf("String() = %q, want %q", got, tt.wantStr)
		}
		if got := tt.p.Label(); got != tt.wantLabel {
			t.Errorf("%s Label() = %q, want %q", tt.p, got, tt.wantLabel)
		}
	}
}

func TestPriority_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		P Priority `json:"priority"`
	}{P2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"priority":"P2"}` {
		t.Errorf("json = %s", b)
	}

	var out struct {
		P Priority `json:"priority"`
	}
	if err := json.Unmarshal([]byte(`{"priority":"p4"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.P != P4 {
		t.Errorf("priority = %s, want P4", out.P)
	}

	if _, err := json.Marshal(Priority(9)); err == nil {
		t.Error("expected error marshalling invalid priority")
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	valid := map[string]Priority{"P1": P1, "p3": P3, " 5 ": P5, "P2": P2}
	for in, want := range valid {
		got, err := ParsePriority(in)
		if err != nil {
			t.Errorf("ParsePriority(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePriority(%q) = %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{"", "P0", "P6", "PP1", "high", "P12"} {
		if _, err := ParsePriority(in); err == nil {
			t.Errorf("ParsePriority(%q) succeeded, want error", in)
		}
	}
}

func TestPriority_MoreUrgentThan(t *testing.T) {
	t.Parallel()

	if !P1.MoreUrgentThan(P2) {
		t.Error("P1 should be more urgent than P2")
	}
	if P5.MoreUrgentThan(P4) {
		t.Error("P5 should not be more urgent than P4")
	}
	if P3.MoreUrgentThan(P3) {
		t.Error("a priority is not more urgent than itself")
	}
}
