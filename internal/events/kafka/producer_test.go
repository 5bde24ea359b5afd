package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/linnemanlabs/go-core/log"
	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent() *triage.Event {
	return &triage.Event{
		Type:      triage.EventAdmitted,
		PatientID: "01JN123",
		Priority:  classify.P1,
		RiskScore: 43,
		At:        time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	msg, err := toMessage(testEvent())
	if err != nil {
		t.Fatalf("toMessage: %v", err)
	}

	if string(msg.Key) != "01JN123" {
		t.Errorf("key = %q, want patient ID", msg.Key)
	}
	if !msg.Time.Equal(testEvent().At) {
		t.Errorf("time = %v", msg.Time)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	want := map[string]any{
		"type":      "admitted",
		"patientId": "01JN123",
		"priority":  "P1",
		"riskScore": float64(43),
		"at":        "2026-02-26T14:23:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event-type"] != "admitted" {
		t.Errorf("event-type header = %q", headers["event-type"])
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	fw := &fakeWriter{}
	p := &Producer{w: fw, topic: "triage-events", logger: log.Nop()}

	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(fw.msgs))
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fw.closed {
		t.Error("expected writer to be closed")
	}
}

func TestPublish_WriteError(t *testing.T) {
	t.Parallel()

	fw := &fakeWriter{err: errors.New("leader not available")}
	p := &Producer{w: fw, topic: "triage-events", logger: log.Nop()}

	err := p.Publish(context.Background(), testEvent())
	if !errors.Is(err, fw.err) {
		t.Errorf("err = %v, want wrapped write error", err)
	}
}

func TestNewProducer_Config(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"kafka-1:9092", "kafka-2:9092"}, "triage-events", nil)
	kw, ok := p.w.(*kafka.Writer)
	if !ok {
		t.Fatalf("writer type = %T, want *kafka.Writer", p.w)
	}
	if kw.Topic != "triage-events" {
		t.Errorf("topic = %q", kw.Topic)
	}
	if _, ok := kw.Balancer.(*kafka.Hash); !ok {
		t.Errorf("balancer = %T, want *kafka.Hash", kw.Balancer)
	}
	if kw.Addr.String() != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("addr = %q", kw.Addr.String())
	}
}
