package triage

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/triageline/internal/classify"
)

//go:embed demo_patients.yaml
var demoPatients []byte

type demoPatient struct {
	Name     string  `yaml:"name"`
	Age      int     `yaml:"age"`
	Gender   string  `yaml:"gender"`
	HR       int     `yaml:"hr"`
	BP       string  `yaml:"bp"`
	SpO2     float64 `yaml:"spo2"`
	Temp     float64 `yaml:"temp"`
	Symptoms string  `yaml:"symptoms"`
}

// DemoIntakes returns the embedded demo patients.
func DemoIntakes() ([]Intake, error) {
	var raw []demoPatient
	if err := yaml.Unmarshal(demoPatients, &raw); err != nil {
		return nil, fmt.Errorf("parse demo patients: %w", err)
	}
	out := make([]Intake, 0, len(raw))
	for _, d := range raw {
		out = append(out, Intake{
			Name:   d.Name,
			Age:    d.Age,
			Gender: d.Gender,
			Vitals: classify.VitalSigns{
				HeartRate:     d.HR,
				BloodPressure: d.BP,
				SpO2:          d.SpO2,
				Temperature:   d.Temp,
			},
			Symptoms: d.Symptoms,
		})
	}
	return out, nil
}

// SeedDemo admits every demo patient and returns how many were admitted.
// A store that already holds patients is left alone, so restarting against
// a persistent store does not duplicate the demo queue.
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	existing, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list patients: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Info(ctx, "store not empty, skipping demo seed", "patients", len(existing))
		return 0, nil
	}

	intakes, err := DemoIntakes()
	if err != nil {
		return 0, err
	}
	for i := range intakes {
		if _, err := s.Admit(ctx, &intakes[i]); err != nil {
			return i, fmt.Errorf("admit demo patient %q: %w", intakes[i].Name, err)
		}
	}
	return len(intakes), nil
}
