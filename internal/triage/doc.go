// Package triage classifies free-text symptom descriptions into a coarse
// category with an escalation flag. Signals are detected by substring match
// against per-signal keyword sets; a fixed decision table maps signals to a
// category. The table is patient-facing guidance and must not be reordered.
package triage
