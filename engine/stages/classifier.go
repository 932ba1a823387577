package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// ClassifierStage maps the parsed resume onto the normalized 1-10 level
// scale for the candidate's profession. Its output is the "most likely"
// assessment that later anchors the consensus vote.
type ClassifierStage struct {
	base
}

// NewClassifierStage builds the level classifier stage.
func NewClassifierStage(model string, client CompletionClient, logger Logger, events EventSink) *ClassifierStage {
	return &ClassifierStage{base: newBase(StageLevelClassifier, KeyInitialLevel, model, ShapeJSON, client, logger, events)}
}

// Execute implements Stage.
func (s *ClassifierStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	text, err := s.complete(ctx, buildClassifierPrompt(snap))
	if err != nil {
		return nil, s.classify(err)
	}
	assessment, err := decodeStructured[envelope.LevelAssessment](text)
	if err != nil {
		return nil, NewTerminal(s.name, err)
	}
	if assessment.NormalizedLevel < 1 || assessment.NormalizedLevel > 10 {
		return nil, NewTerminal(s.name, fmt.Errorf("normalized_level %d outside 1-10", assessment.NormalizedLevel))
	}
	s.preview(text)
	return envelope.NewStructuredResult(s.name, assessment, time.Since(start)), nil
}

// Apply implements Stage.
func (s *ClassifierStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	assessment, ok := res.Structured.(*envelope.LevelAssessment)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	pc.Initial = assessment
	pc.SetOutput(s.outputKey, assessment)
	return nil
}
