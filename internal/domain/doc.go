// Package domain holds the core types of the clinical intelligence
// platform: patient records, multi-modal medical data, agent outputs,
// risk and safety assessments, and the consolidated report / Clinical
// Intelligence Summary (CIS) produced by the analysis pipeline.
//
// All persistence and transport layers depend on this package; it
// depends on nothing but the standard library and uuid.
package domain
