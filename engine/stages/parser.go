package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// Stage names and output keys, in pipeline order.
const (
	StageResumeParser    = "resume_parser"
	StageLevelClassifier = "level_classifier"
	StageConservative    = "conservative_evaluator"
	StageOptimistic      = "optimistic_evaluator"
	StageConsensus       = "consensus"
	StageURLValidator    = "url_validator"
	StageFormatter       = "formatter"

	KeyParsedResume    = "parsed_resume"
	KeyInitialLevel    = "initial_level"
	KeyConservative    = "conservative_assessment"
	KeyOptimistic      = "optimistic_assessment"
	KeyCalibratedLevel = "calibrated_level"
	KeyValidatedJobs   = "validated_jobs"
	KeyFormattedOutput = "formatted_output"
)

// ParserStage extracts structured facts from the raw resume text. The
// experience summary on the context is injected into the prompt so the
// model never re-derives years-of-experience figures.
type ParserStage struct {
	base
}

// NewParserStage builds the resume parser stage.
func NewParserStage(model string, client CompletionClient, logger Logger, events EventSink) *ParserStage {
	return &ParserStage{base: newBase(StageResumeParser, KeyParsedResume, model, ShapeJSON, client, logger, events)}
}

// Execute implements Stage.
func (s *ParserStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	text, err := s.complete(ctx, buildParserPrompt(snap))
	if err != nil {
		return nil, s.classify(err)
	}
	parsed, err := decodeStructured[envelope.ParsedResume](text)
	if err != nil {
		return nil, NewTerminal(s.name, err)
	}
	if parsed.TotalYears == 0 && snap.Experience != nil {
		parsed.TotalYears = snap.Experience.TotalYears
	}
	s.preview(text)
	return envelope.NewStructuredResult(s.name, parsed, time.Since(start)), nil
}

// Apply implements Stage.
func (s *ParserStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	parsed, ok := res.Structured.(*envelope.ParsedResume)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	pc.Parsed = parsed
	pc.SetOutput(s.outputKey, parsed)
	return nil
}
