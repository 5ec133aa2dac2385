package specdir

import (
	"encoding/json"

	"github.com/devagent/orchestrator/atomicfile"
	agenterrors "github.com/devagent/orchestrator/errors"
)

// Complexity classifies a spec's scope, choosing which phase table the
// Spec Orchestrator runs (spec.md §4.7).
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

// ComplexityAssessmentData is the parsed form of complexity_assessment.json.
type ComplexityAssessmentData struct {
	Complexity        Complexity `json:"complexity"`
	Confidence        float64    `json:"confidence"`
	Reasoning         string     `json:"reasoning"`
	NeedsResearch     bool       `json:"needs_research,omitempty"`
	NeedsSelfCritique bool       `json:"needs_self_critique,omitempty"`
}

// ReadComplexityAssessment reads and validates complexity_assessment.json.
// Per spec.md §4.7, a missing or invalid file is not itself a hard error
// at this layer — callers (specpipeline) default to ComplexityStandard —
// so this returns the zero-value/false pair on any read or validation
// failure instead of an error, mirroring that fallback contract.
func ReadComplexityAssessment(d Dir) (ComplexityAssessmentData, bool) {
	data, err := atomicfile.Read(d.ComplexityAssessmentPath())
	if err != nil {
		return ComplexityAssessmentData{}, false
	}
	var out ComplexityAssessmentData
	if err := json.Unmarshal(data, &out); err != nil {
		return ComplexityAssessmentData{}, false
	}
	switch out.Complexity {
	case ComplexitySimple, ComplexityStandard, ComplexityComplex:
	default:
		return ComplexityAssessmentData{}, false
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return ComplexityAssessmentData{}, false
	}
	return out, true
}

// WriteComplexityAssessment atomically writes the complexity assessment
// file. It is the spec_gatherer session's artifact; the core only reads
// it back, but a writer is provided for tests and any host that drives
// the assessment step out-of-process.
func WriteComplexityAssessment(d Dir, data ComplexityAssessmentData) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return agenterrors.Wrap(agenterrors.KindParse, "specdir: marshal complexity assessment", err)
	}
	return atomicfile.Write(d.ComplexityAssessmentPath(), encoded)
}
