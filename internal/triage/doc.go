// Package triage provides the business boundary for patient intake. It
// defines the Service (admission, queue ordering, discharge, background
// follow-up), the Advisor (non-authoritative LLM advisory notes), the Store
// interface (persistence), and the domain models. Priority decisions come
// from the classify package and are never altered here.
package triage
