package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	ResponseTokens = 1024
)

// AdvisorHooks receives callbacks for instrumentation. Nil funcs are skipped.
type AdvisorHooks struct {
	OnLLMCall  func(inputTokens, outputTokens int, duration float64)
	OnComplete func(status Status, model string, duration float64)
}

// Advisor asks an LLM for a short clinical note on an already classified
// patient. The note is advisory only: the classifier's priority stands.
type Advisor struct {
	provider Provider
	logger   log.Logger
	hooks    AdvisorHooks
}

// NewAdvisor creates a new Advisor with the given provider.
func NewAdvisor(provider Provider, logger log.Logger, hooks AdvisorHooks) *Advisor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Advisor{
		provider: provider,
		logger:   logger,
		hooks:    hooks,
	}
}

// Run produces an advisory note for p. It never returns nil; provider
// failures are reported as StatusFailed with the error in Text.
func (a *Advisor) Run(ctx context.Context, p *Patient) *Advice {
	start := time.Now()
	L := a.logger.With("patient_id", p.ID, "priority", p.Priority.String())

	resp, err := a.provider.Send(ctx, &LLMRequest{
		MaxTokens: ResponseTokens,
		System:    buildSystemPrompt(),
		Messages: []Message{
			{Role: "user", Content: []ContentBlock{
				{Type: "text", Text: buildPatientPrompt(p)},
			}},
		},
	})
	llmDur := time.Since(start).Seconds()

	if err != nil {
		L.Error(ctx, err, "advisory llm call failed")
		adv := &Advice{
			Status:      StatusFailed,
			Text:        fmt.Sprintf("LLM error: %v", err),
			Duration:    llmDur,
			CompletedAt: time.Now(),
		}
		a.complete(adv)
		return adv
	}

	if a.hooks.OnLLMCall != nil {
		a.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, llmDur)
	}

	var text []string
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			text = append(text, strings.TrimSpace(block.Text))
		}
	}

	adv := &Advice{
		Status:       StatusComplete,
		Text:         strings.Join(text, "\n\n"),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     time.Since(start).Seconds(),
		CompletedAt:  time.Now(),
	}
	if adv.Text == "" {
		adv.Status = StatusFailed
		adv.Text = "LLM returned no text"
	}
	if resp.StopReason == StopMaxTokens {
		L.Warn(ctx, "advisory truncated at token limit", "limit", ResponseTokens)
	}

	L.Info(ctx, "advisory complete",
		"status", adv.Status,
		"model", adv.Model,
		"input_tokens", adv.InputTokens,
		"output_tokens", adv.OutputTokens,
		"duration", adv.Duration,
	)

	a.complete(adv)
	return adv
}

func (a *Advisor) complete(adv *Advice) {
	if a.hooks.OnComplete != nil {
		a.hooks.OnComplete(adv.Status, adv.Model, adv.Duration)
	}
}

// buildSystemPrompt instructs the model on its role and its limits.
func buildSystemPrompt() string {
	return `You are an emergency department triage assistant writing a short note for the attending clinician.

A deterministic rule-based classifier has already assigned the patient's priority (P1 most urgent to P5 least urgent).
You must not change or argue with that priority. Provide, in at most five short bullet points:
1. The most likely concerns given the vitals and symptoms
2. Immediate checks or investigations to consider
3. Red flags that would warrant re-triage

Be concise and clinical. Do not invent measurements that were not provided.`
}

// buildPatientPrompt summarises the patient and the classifier's decision.
func buildPatientPrompt(p *Patient) string {
	flags := "none"
	if len(p.Flags) > 0 {
		flags = strings.Join(p.Flags, ", ")
	}
	symptoms := p.Symptoms
	if strings.TrimSpace(symptoms) == "" {
		symptoms = "(none reported)"
	}

	return fmt.Sprintf(`Patient: %s, age %d, gender %s

Vitals:
  Heart rate: %d bpm
  Blood pressure: %s mmHg
  SpO2: %g%%
  Temperature: %g°C

Reported symptoms: %s
Matched symptom flags: %s

Classifier decision: %s (%s), risk score %d/100
Classifier explanation: %s

Please write the advisory note.`,
		nonEmpty(p.Name, "unnamed"), p.Age, nonEmpty(p.Gender, "unspecified"),
		p.Vitals.HeartRate,
		p.Vitals.BloodPressure,
		p.Vitals.SpO2,
		p.Vitals.Temperature,
		symptoms,
		flags,
		p.Priority, p.Priority.Label(), p.RiskScore,
		p.Explanation,
	)
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
