// Package slack alerts clinical staff about high-acuity admissions via a
// Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

const (
	maxHeaderLen  = 150 // Slack limit for plain_text headers
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts patient alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify implements triage.Notifier.
func (n *Notifier) Notify(ctx context.Context, p *triage.Patient) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(p))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "patient_id", p.ID, "priority", p.Priority.String())
	return nil
}

type message struct {
	Text   string  `json:"text"` // notification fallback
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Fields   []text `json:"fields,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(s string) text    { return text{Type: "mrkdwn", Text: s} }
func plainText(s string) text { return text{Type: "plain_text", Text: s} }

func buildMessage(p *triage.Patient) message {
	title := headerText(p)
	blocks := []block{
		{Type: "header", Text: ptr(plainText(truncate(title, maxHeaderLen)))},
		fieldsBlock(p),
		{Type: "divider"},
		{Type: "section", Text: ptr(mrkdwn("*Why*\n" + truncate(nonEmpty(p.Explanation, "_No explanation._"), maxSectionLen)))},
	}
	if adv := advisoryText(p); adv != "" {
		blocks = append(blocks, block{Type: "section", Text: ptr(mrkdwn(adv))})
	}
	blocks = append(blocks, contextBlock(p))

	return message{Text: title, Blocks: blocks}
}

func headerText(p *triage.Patient) string {
	return fmt.Sprintf("%s %s %s: %s",
		priorityEmoji(p.Priority), p.Priority, titleCase(p.Priority.Label()), nonEmpty(p.Name, "Unnamed patient"))
}

func fieldsBlock(p *triage.Patient) block {
	v := p.Vitals
	patient := fmt.Sprintf("*Patient:* %d", p.Age)
	if p.Gender != "" {
		patient += " " + p.Gender
	}
	flags := "none"
	if len(p.Flags) > 0 {
		flags = strings.Join(p.Flags, ", ")
	}

	return block{
		Type: "section",
		Fields: []text{
			mrkdwn(fmt.Sprintf("*Priority:* %s", p.Priority)),
			mrkdwn(fmt.Sprintf("*Risk score:* %d/100", p.RiskScore)),
			mrkdwn(fmt.Sprintf("*HR:* %d bpm", v.HeartRate)),
			mrkdwn(fmt.Sprintf("*BP:* %s", v.BloodPressure)),
			mrkdwn(fmt.Sprintf("*SpO2:* %g%%", v.SpO2)),
			mrkdwn(fmt.Sprintf("*Temp:* %g°C", v.Temperature)),
			mrkdwn(patient),
			mrkdwn(truncate("*Flags:* "+flags, 2000)),
		},
	}
}

func advisoryText(p *triage.Patient) string {
	switch p.AdvisoryStatus {
	case triage.StatusComplete:
		return fmt.Sprintf("*Advisory* (%s)\n%s", shortModel(p.AdvisoryModel), truncate(p.Advisory, maxSectionLen))
	case triage.StatusPending, triage.StatusInProgress:
		return "_Advisory note pending._"
	default:
		return ""
	}
}

func contextBlock(p *triage.Patient) block {
	line := fmt.Sprintf("triageline • patient %s • arrived %s",
		p.ID, p.ArrivalTime.UTC().Format("2006-01-02 15:04 UTC"))
	return block{Type: "context", Elements: []text{mrkdwn(line)}}
}

func priorityEmoji(p classify.Priority) string {
	switch p {
	case classify.P1:
		return "\U0001f534" // red circle
	case classify.P2:
		return "\U0001f7e0" // orange circle
	case classify.P3:
		return "\U0001f7e1" // yellow circle
	case classify.P4:
		return "\U0001f7e2" // green circle
	default:
		return "\U0001f535" // blue circle
	}
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate cuts s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func ptr[T any](v T) *T { return &v }
