package classify

import (
	"fmt"
	"strings"
)

// Result is the outcome of classifying one set of inputs.
type Result struct {
	Priority      Priority       `json:"priority"`
	RiskScore     int            `json:"riskScore"`
	Explanation   string         `json:"explanation"`
	Flags         []string       `json:"flags"`
	Contributions []Contribution `json:"contributions"`
}

// Classifier applies the triage rule ladder with a fixed vocabulary.
type Classifier struct {
	vocab []phrase
}

// New builds a Classifier from v.
func New(v Vocabulary) (*Classifier, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	return &Classifier{vocab: v.compile()}, nil
}

var defaultClassifier = &Classifier{vocab: DefaultVocabulary().compile()}

// Default returns the classifier using DefaultVocabulary.
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies with the default vocabulary.
func Classify(v VitalSigns, symptoms string) (Result, error) {
	return defaultClassifier.Classify(v, symptoms)
}

// finding is one condition that fired, tagged with the tier it belongs to
// and the vitals it cites.
type finding struct {
	priority Priority
	text     string
	cites    []string
}

// Classify returns the priority, risk score and explanation for the given
// vitals and symptom text. The only error is *InvalidInputError.
func (c *Classifier) Classify(v VitalSigns, symptoms string) (Result, error) {
	r, err := v.parse()
	if err != nil {
		return Result{}, err
	}

	hits := match(c.vocab, symptoms)
	findings := vitalFindings(r)
	for _, h := range hits {
		findings = append(findings, finding{
			priority: h.priority,
			text:     fmt.Sprintf("reported %q", h.text),
		})
	}

	priority := P5
	for _, f := range findings {
		if f.priority.MoreUrgentThan(priority) {
			priority = f.priority
		}
	}
	if priority == P5 && strings.TrimSpace(symptoms) != "" {
		priority = P4
	}

	score, contrib := riskScore(r)

	flags := make([]string, 0, len(hits))
	for _, h := range hits {
		flags = append(flags, h.text)
	}

	return Result{
		Priority:      priority,
		RiskScore:     score,
		Explanation:   explain(priority, findings, r),
		Flags:         flags,
		Contributions: contrib,
	}, nil
}

// vitalFindings evaluates every vital-sign rule of the ladder. Ranges are
// half-open exactly as the tiers define them, so spo2 92 is P2 not P1.
func vitalFindings(r reading) []finding {
	var out []finding
	hr := fmt.Sprintf("HR %d bpm", r.hr)
	spo2 := fmt.Sprintf("SpO2 %s%%", formatNumber(r.spo2))
	temp := formatNumber(r.temp) + "°C"
	bp := "BP " + r.bp.String()

	add := func(p Priority, text string, cites ...string) {
		out = append(out, finding{priority: p, text: text, cites: cites})
	}

	switch {
	case r.spo2 < 92:
		add(P1, "critical hypoxia ("+spo2+")", FieldSpO2)
	case r.spo2 < 94:
		add(P2, "hypoxia ("+spo2+")", FieldSpO2)
	case r.spo2 < 96:
		add(P3, "mild hypoxia ("+spo2+")", FieldSpO2)
	}

	if r.temp >= 39.5 && r.hr > 110 {
		add(P1, "sepsis pattern ("+temp+" with "+hr+")", FieldTemperature, FieldHeartRate)
	}

	switch {
	case r.hr > 130:
		add(P1, "severe tachycardia ("+hr+")", FieldHeartRate)
	case r.hr < 40:
		add(P1, "severe bradycardia ("+hr+")", FieldHeartRate)
	case r.hr > 110:
		add(P2, "tachycardia ("+hr+")", FieldHeartRate)
	case r.hr > 100:
		add(P3, "mild tachycardia ("+hr+")", FieldHeartRate)
	}

	switch {
	case r.temp >= 39.0:
		add(P2, "high fever ("+temp+")", FieldTemperature)
	case r.temp >= 38.0:
		add(P3, "fever ("+temp+")", FieldTemperature)
	}

	switch {
	case r.bp.Systolic >= 180:
		add(P2, "severe hypertension ("+bp+")", FieldBloodPressure)
	case r.bp.Systolic < 90:
		add(P2, "hypotension ("+bp+")", FieldBloodPressure)
	}

	return out
}

// explain renders the findings most severe first. A finding whose cited
// vitals were all cited already is omitted. When nothing cites a measured
// value the vitals snapshot is appended.
func explain(p Priority, findings []finding, r reading) string {
	ordered := make([]finding, 0, len(findings))
	for tierP := P1; tierP <= P3; tierP++ {
		for _, f := range findings {
			if f.priority == tierP {
				ordered = append(ordered, f)
			}
		}
	}

	cited := make(map[string]bool)
	var parts []string
	for _, f := range ordered {
		if len(f.cites) > 0 && allCited(cited, f.cites) {
			continue
		}
		for _, c := range f.cites {
			cited[c] = true
		}
		parts = append(parts, f.text)
	}

	var b strings.Builder
	switch {
	case len(parts) > 0:
		b.WriteString(capitalize(parts[0]))
		if rest := parts[1:]; len(rest) > 0 {
			b.WriteString(" combined with ")
			b.WriteString(joinAnd(rest))
		}
	case p == P4:
		b.WriteString("Non-specific symptoms with vitals within normal limits")
	default:
		b.WriteString("Vitals within normal limits and no reported symptoms")
	}

	if len(cited) == 0 {
		fmt.Fprintf(&b, " (HR %d bpm, BP %s, SpO2 %s%%, temp %s°C)",
			r.hr, r.bp, formatNumber(r.spo2), formatNumber(r.temp))
	}

	fmt.Fprintf(&b, " indicated %s %s.", p, p.Label())
	return b.String()
}

func allCited(cited map[string]bool, cites []string) bool {
	for _, c := range cites {
		if !cited[c] {
			return false
		}
	}
	return true
}

func joinAnd(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
