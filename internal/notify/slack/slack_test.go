package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

func testPatient() *triage.Patient {
	return &triage.Patient{
		ID:     "01JN123",
		Name:   "Driss Amrani",
		Age:    52,
		Gender: "M",
		Vitals: classify.VitalSigns{
			HeartRate: 115, BloodPressure: "160/100", SpO2: 91, Temperature: 39.2,
		},
		Symptoms:       "Chest tightness and high fever",
		ArrivalTime:    time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
		Priority:       classify.P1,
		RiskScore:      43,
		Explanation:    "Critical hypoxia (SpO2 91%) combined with tachycardia (HR 115 bpm) indicated P1 resuscitation.",
		Flags:          []string{"chest tightness", "fever"},
		AdvisoryStatus: triage.StatusPending,
	}
}

func TestNotify_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	if err := n.Notify(context.Background(), testPatient()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, fields, divider, explanation, advisory, context
	if len(blocks) != 6 {
		t.Fatalf("blocks count = %d, want 6", len(blocks))
	}

	header := blocks[0].(map[string]any)["text"].(map[string]any)["text"].(string)
	if header != "\U0001f534 P1 Resuscitation: Driss Amrani" {
		t.Errorf("header = %q", header)
	}
	if fallback, _ := got["text"].(string); fallback != header {
		t.Errorf("fallback text = %q, want header text", fallback)
	}

	fields := blocks[1].(map[string]any)["fields"].([]any)
	var all []string
	for _, f := range fields {
		all = append(all, f.(map[string]any)["text"].(string))
	}
	joined := strings.Join(all, "\n")
	for _, want := range []string{"*Risk score:* 43/100", "*HR:* 115 bpm", "*BP:* 160/100", "*SpO2:* 91%", "*Temp:* 39.2°C", "*Patient:* 52 M", "chest tightness, fever"} {
		if !strings.Contains(joined, want) {
			t.Errorf("fields missing %q", want)
		}
	}

	why := blocks[3].(map[string]any)["text"].(map[string]any)["text"].(string)
	if !strings.Contains(why, "Critical hypoxia") {
		t.Errorf("explanation block = %q", why)
	}

	ctxLine := blocks[5].(map[string]any)["elements"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(ctxLine, "01JN123") || !strings.Contains(ctxLine, "2026-02-26 14:23 UTC") {
		t.Errorf("context line = %q", ctxLine)
	}
}

func TestNotify_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", nil)
	if err := n.Notify(context.Background(), &triage.Patient{}); err != nil {
		t.Fatalf("Notify with empty URL should be no-op, got: %v", err)
	}
}

func TestNotify_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	err := New(srv.URL, log.Nop()).Notify(context.Background(), testPatient())
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}

func TestBuildMessage_Advisory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status triage.Status
		want   string
		blocks int
	}{
		{"none omits block", triage.StatusNone, "", 5},
		{"failed omits block", triage.StatusFailed, "", 5},
		{"pending", triage.StatusPending, "pending", 6},
		{"complete", triage.StatusComplete, "*Advisory* (claude-sonnet-4)", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := testPatient()
			p.AdvisoryStatus = tt.status
			p.Advisory = "- consider sepsis workup"
			p.AdvisoryModel = "claude-sonnet-4-20250514"

			msg := buildMessage(p)
			if len(msg.Blocks) != tt.blocks {
				t.Fatalf("blocks = %d, want %d", len(msg.Blocks), tt.blocks)
			}
			if tt.want != "" && !strings.Contains(msg.Blocks[4].Text.Text, tt.want) {
				t.Errorf("advisory block = %q, want to contain %q", msg.Blocks[4].Text.Text, tt.want)
			}
		})
	}
}

func TestPriorityEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    classify.Priority
		want string
	}{
		{classify.P1, "\U0001f534"},
		{classify.P2, "\U0001f7e0"},
		{classify.P3, "\U0001f7e1"},
		{classify.P4, "\U0001f7e2"},
		{classify.P5, "\U0001f535"},
	}

	for _, tt := range tests {
		if got := priorityEmoji(tt.p); got != tt.want {
			t.Errorf("priorityEmoji(%s) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestShortModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"claude-sonnet-4-20250514", "claude-sonnet-4"},
		{"claude-opus-4-20250514", "claude-opus-4"},
		{"gpt-4o", "gpt-4o"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := shortModel(tt.input); got != tt.want {
				t.Errorf("shortModel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	t.Parallel()

	got := truncate(strings.Repeat("é", 10), 5)
	if got != "éé..." {
		t.Errorf("truncate = %q, want %q", got, "éé...")
	}
	if !utf8.ValidString(got) {
		t.Error("truncate produced invalid UTF-8")
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("Driss Amrani", "Critical hypoxia (SpO2 91%).", "- consider sepsis", "claude-sonnet-4-20250514")
	f.Add("", "", "", "")
	f.Add("<@U123> mention", "*bold* _italic_ ~strike~", "```code```", "model")
	f.Add("name\x00\x01\x02", "line\nbreak", "tab\there", "m\x00del")
	f.Add(strings.Repeat("A", 5000), strings.Repeat("x", 10000), strings.Repeat("é", 4000), "model-20260101")

	f.Fuzz(func(t *testing.T, name, explanation, advisory, model string) {
		p := testPatient()
		p.Name = name
		p.Explanation = explanation
		p.Advisory = advisory
		p.AdvisoryModel = model
		p.AdvisoryStatus = triage.StatusComplete

		// Must not panic
		msg := buildMessage(p)

		if n := utf8.RuneCountInString(msg.Blocks[0].Text.Text); n > maxHeaderLen {
			t.Fatalf("header length = %d runes, want <= %d", n, maxHeaderLen)
		}

		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}
		if blocks, ok := decoded["blocks"].([]any); !ok || len(blocks) != 6 {
			t.Fatalf("blocks = %v, want 6", decoded["blocks"])
		}
	})
}
