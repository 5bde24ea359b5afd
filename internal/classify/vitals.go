package classify

import (
	"math"
	"strconv"
	"strings"
)

// Accepted ranges. Values outside are measurement or entry errors, not
// patients to be classified.
const (
	MinHeartRate = 0
	MaxHeartRate = 300

	MinSystolic  = 40
	MaxSystolic  = 300
	MinDiastolic = 10
	MaxDiastolic = 200

	MinSpO2 = 0.0
	MaxSpO2 = 100.0

	MinTemperature = 25.0
	MaxTemperature = 45.0
)

// VitalSigns is one set of bedside measurements.
type VitalSigns struct {
	HeartRate     int     `json:"hr"`
	BloodPressure string  `json:"bp"`
	SpO2          float64 `json:"spo2"`
	Temperature   float64 `json:"temp"`
}

// BloodPressure is a parsed "SYS/DIA" reading in mmHg.
type BloodPressure struct {
	Systolic  int
	Diastolic int
}

func (bp BloodPressure) String() string {
	return strconv.Itoa(bp.Systolic) + "/" + strconv.Itoa(bp.Diastolic)
}

// ParseBloodPressure parses "120/80". Surrounding and inner spaces are
// tolerated, anything else is an InvalidInputError on field "bp".
func ParseBloodPressure(s string) (BloodPressure, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BloodPressure{}, invalid(FieldBloodPressure, "is required")
	}
	sys, dia, ok := strings.Cut(s, "/")
	if !ok {
		return BloodPressure{}, invalid(FieldBloodPressure, "must be SYS/DIA, got %q", s)
	}
	systolic, err := strconv.Atoi(strings.TrimSpace(sys))
	if err != nil {
		return BloodPressure{}, invalid(FieldBloodPressure, "unparseable systolic value %q", sys)
	}
	diastolic, err := strconv.Atoi(strings.TrimSpace(dia))
	if err != nil {
		return BloodPressure{}, invalid(FieldBloodPressure, "unparseable diastolic value %q", dia)
	}
	if systolic < MinSystolic || systolic > MaxSystolic {
		return BloodPressure{}, invalid(FieldBloodPressure, "systolic %d out of range %d..%d", systolic, MinSystolic, MaxSystolic)
	}
	if diastolic < MinDiastolic || diastolic > MaxDiastolic {
		return BloodPressure{}, invalid(FieldBloodPressure, "diastolic %d out of range %d..%d", diastolic, MinDiastolic, MaxDiastolic)
	}
	if diastolic > systolic {
		return BloodPressure{}, invalid(FieldBloodPressure, "diastolic %d exceeds systolic %d", diastolic, systolic)
	}
	return BloodPressure{Systolic: systolic, Diastolic: diastolic}, nil
}

// Validate checks every field and returns the first InvalidInputError in
// the order spo2, hr, bp, temp.
func (v VitalSigns) Validate() error {
	_, err := v.parse()
	return err
}

// reading is a validated VitalSigns with the blood pressure parsed.
type reading struct {
	hr   int
	bp   BloodPressure
	spo2 float64
	temp float64
}

func (v VitalSigns) parse() (reading, error) {
	if err := checkSpO2(v.SpO2); err != nil {
		return reading{}, err
	}
	if err := checkHeartRate(float64(v.HeartRate)); err != nil {
		return reading{}, err
	}
	bp, err := ParseBloodPressure(v.BloodPressure)
	if err != nil {
		return reading{}, err
	}
	if err := checkTemperature(v.Temperature); err != nil {
		return reading{}, err
	}
	return reading{hr: v.HeartRate, bp: bp, spo2: v.SpO2, temp: v.Temperature}, nil
}

func checkSpO2(v float64) error {
	if math.IsNaN(v) || v < MinSpO2 || v > MaxSpO2 {
		return invalid(FieldSpO2, "%s out of range 0..100", formatNumber(v))
	}
	return nil
}

func checkHeartRate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(FieldHeartRate, "must be a finite number")
	}
	if v != math.Trunc(v) {
		return invalid(FieldHeartRate, "must be a whole number, got %s", formatNumber(v))
	}
	if v < MinHeartRate || v > MaxHeartRate {
		return invalid(FieldHeartRate, "%s out of range %d..%d", formatNumber(v), MinHeartRate, MaxHeartRate)
	}
	return nil
}

func checkTemperature(v float64) error {
	if math.IsNaN(v) || v < MinTemperature || v > MaxTemperature {
		return invalid(FieldTemperature, "%s out of range %s..%s", formatNumber(v), formatNumber(MinTemperature), formatNumber(MaxTemperature))
	}
	return nil
}

// VitalsForm is a partially filled intake form. Nil fields are missing.
// HeartRate is a float so fractional input can be rejected explicitly
// instead of failing to decode.
type VitalsForm struct {
	HeartRate     *float64 `json:"hr"`
	BloodPressure *string  `json:"bp"`
	SpO2          *float64 `json:"spo2"`
	Temperature   *float64 `json:"temp"`
}

// Vitals converts the form to VitalSigns. Range errors on fields that are
// present are reported before any missing field.
func (f VitalsForm) Vitals() (VitalSigns, error) {
	if f.SpO2 != nil {
		if err := checkSpO2(*f.SpO2); err != nil {
			return VitalSigns{}, err
		}
	}
	if f.HeartRate != nil {
		if err := checkHeartRate(*f.HeartRate); err != nil {
			return VitalSigns{}, err
		}
	}
	if f.BloodPressure != nil {
		if _, err := ParseBloodPressure(*f.BloodPressure); err != nil {
			return VitalSigns{}, err
		}
	}
	if f.Temperature != nil {
		if err := checkTemperature(*f.Temperature); err != nil {
			return VitalSigns{}, err
		}
	}

	switch {
	case f.SpO2 == nil:
		return VitalSigns{}, invalid(FieldSpO2, "is required")
	case f.HeartRate == nil:
		return VitalSigns{}, invalid(FieldHeartRate, "is required")
	case f.BloodPressure == nil:
		return VitalSigns{}, invalid(FieldBloodPressure, "is required")
	case f.Temperature == nil:
		return VitalSigns{}, invalid(FieldTemperature, "is required")
	}

	return VitalSigns{
		HeartRate:     int(*f.HeartRate),
		BloodPressure: strings.TrimSpace(*f.BloodPressure),
		SpO2:          *f.SpO2,
		Temperature:   *f.Temperature,
	}, nil
}

// formatNumber renders the shortest exact decimal, e.g. 91, 39.2.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
