package classify

import (
	"errors"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestParseBloodPressure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    BloodPressure
		wantErr bool
	}{
		{"120/80", BloodPressure{120, 80}, false},
		{" 160 / 100 ", BloodPressure{160, 100}, false},
		{"40/10", BloodPressure{40, 10}, false},
		{"300/200", BloodPressure{300, 200}, false},
		{"", BloodPressure{}, true},
		{"120", BloodPressure{}, true},
		{"120/", BloodPressure{}, true},
		{"/80", BloodPressure{}, true},
		{"abc/def", BloodPressure{}, true},
		{"120/80/60", BloodPressure{}, true},
		{"12.5/8", BloodPressure{}, true},
		{"39/20", BloodPressure{}, true},
		{"301/80", BloodPressure{}, true},
		{"120/9", BloodPressure{}, true},
		{"80/120", BloodPressure{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBloodPressure(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBloodPressure(%q) = %v, want error", tt.in, got)
				}
				var ie *InvalidInputError
				if !errors.As(err, &ie) || ie.Field != FieldBloodPressure {
					t.Errorf("error = %v, want InvalidInputError on bp", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBloodPressure(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseBloodPressure(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBloodPressure_String(t *testing.T) {
	t.Parallel()

	if got := (BloodPressure{Systolic: 118, Diastolic: 76}).String(); got != "118/76" {
		t.Errorf("String() = %q, want %q", got, "118/76")
	}
}

func TestVitalsForm_Vitals(t *testing.T) {
	t.Parallel()

	full := func() VitalsForm {
		return VitalsForm{
			HeartRate:     ptr(72.0),
			BloodPressure: ptr("120/80"),
			SpO2:          ptr(98.0),
			Temperature:   ptr(36.8),
		}
	}

	tests := []struct {
		name       string
		form       VitalsForm
		wantField  string
		wantReason string
	}{
		{"complete", full(), "", ""},
		{"only spo2 out of range", VitalsForm{SpO2: ptr(150.0)}, FieldSpO2, "150 out of range 0..100"},
		{"missing hr", func() VitalsForm { f := full(); f.HeartRate = nil; return f }(), FieldHeartRate, "is required"},
		{"missing temp", func() VitalsForm { f := full(); f.Temperature = nil; return f }(), FieldTemperature, "is required"},
		{"fractional hr", func() VitalsForm { f := full(); f.HeartRate = ptr(72.5); return f }(), FieldHeartRate, "must be a whole number, got 72.5"},
		{"range beats missing", VitalsForm{HeartRate: ptr(-3.0)}, FieldHeartRate, "-3 out of range 0..300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := tt.form.Vitals()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Vitals: %v", err)
				}
				want := VitalSigns{HeartRate: 72, BloodPressure: "120/80", SpO2: 98, Temperature: 36.8}
				if v != want {
					t.Errorf("Vitals() = %+v, want %+v", v, want)
				}
				return
			}
			var ie *InvalidInputError
			if !errors.As(err, &ie) {
				t.Fatalf("error = %v, want *InvalidInputError", err)
			}
			if ie.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ie.Field, tt.wantField)
			}
			if ie.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", ie.Reason, tt.wantReason)
			}
		})
	}
}

func TestInvalidInputError_Message(t *testing.T) {
	t.Parallel()

	err := error(&InvalidInputError{Field: "spo2", Reason: "150 out of range 0..100"})
	if got, want := err.Error(), "invalid input: spo2: 150 out of range 0..100"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false")
	}
}
