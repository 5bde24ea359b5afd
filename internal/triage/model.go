package triage

import (
	"time"

	"github.com/linnemanlabs/triageline/internal/classify"
)

// Status tracks where an advisory note is in its lifecycle.
type Status string

const (
	// StatusNone means no advisory provider is configured
	StatusNone Status = "none"

	// StatusPending means admitted, advisory not yet started
	StatusPending Status = "pending"

	// StatusInProgress means the provider is being consulted
	StatusInProgress Status = "in_progress"

	// StatusComplete means the advisory note is available
	StatusComplete Status = "complete"

	// StatusFailed means the provider returned an error
	StatusFailed Status = "failed"
)

// Intake is what the front desk submits for a new patient.
type Intake struct {
	Name     string              `json:"name"`
	Age      int                 `json:"age"`
	Gender   string              `json:"gender"`
	Vitals   classify.VitalSigns `json:"vitals"`
	Symptoms string              `json:"symptoms"`
}

// Patient is an admitted patient with their classification.
type Patient struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Age         int                 `json:"age"`
	Gender      string              `json:"gender"`
	Vitals      classify.VitalSigns `json:"vitals"`
	Symptoms    string              `json:"symptoms"`
	ArrivalTime time.Time           `json:"arrivalTime"`
	Position    int                 `json:"position,omitempty"`

	Priority      classify.Priority       `json:"priority"`
	RiskScore     int                     `json:"riskScore"`
	Explanation   string                  `json:"explanation"`
	Flags         []string                `json:"flags"`
	Contributions []classify.Contribution `json:"contributions"`

	AdvisoryStatus      Status    `json:"advisoryStatus"`
	Advisory            string    `json:"advisory,omitempty"`
	AdvisoryModel       string    `json:"advisoryModel,omitempty"`
	AdvisoryTokens      int       `json:"advisoryTokens,omitempty"`
	AdvisoryCompletedAt time.Time `json:"advisoryCompletedAt,omitzero"`
}

// HighRisk reports whether the patient is at or above the given priority.
func (p *Patient) HighRisk(threshold classify.Priority) bool {
	return p.Priority <= threshold
}

// Advice is the outcome of one advisory run.
type Advice struct {
	Status       Status
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     float64
	CompletedAt  time.Time
}

// EventType names a patient lifecycle event.
type EventType string

const (
	EventAdmitted   EventType = "admitted"
	EventAdvised    EventType = "advised"
	EventDischarged EventType = "discharged"
)

// Event is published to downstream consumers on every lifecycle change.
type Event struct {
	Type      EventType         `json:"type"`
	PatientID string            `json:"patientId"`
	Priority  classify.Priority `json:"priority"`
	RiskScore int               `json:"riskScore"`
	At        time.Time         `json:"at"`
}
