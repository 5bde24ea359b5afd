// Package classify implements the deterministic triage classifier: a rule
// ladder over vital signs and symptom keywords that yields a priority level,
// a risk score and an explanation citing the measured values that drove it.
//
// Classification is a pure function of its inputs. A Classifier is immutable
// after construction and safe for concurrent use.
package classify
