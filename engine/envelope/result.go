package envelope

import "time"

// ResultKind tags the variant carried by a StageResult.
type ResultKind string

const (
	// ResultStructured carries a typed record parsed from completion output.
	ResultStructured ResultKind = "structured"
	// ResultFreeText carries raw text; structural validation is deferred.
	ResultFreeText ResultKind = "free_text"
)

// StageResult is the immutable output of one stage execution. Structured
// stages set Structured; free-text stages set Text. Failures are returned
// as errors alongside, not encoded here.
type StageResult struct {
	Stage      string        `json:"stage"`
	Kind       ResultKind    `json:"kind"`
	Structured any           `json:"structured,omitempty"`
	Text       string        `json:"text,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// NewStructuredResult builds a structured StageResult.
func NewStructuredResult(stage string, v any, d time.Duration) *StageResult {
	return &StageResult{Stage: stage, Kind: ResultStructured, Structured: v, Duration: d}
}

// NewFreeTextResult builds a free-text StageResult.
func NewFreeTextResult(stage string, text string, d time.Duration) *StageResult {
	return &StageResult{Stage: stage, Kind: ResultFreeText, Text: text, Duration: d}
}
