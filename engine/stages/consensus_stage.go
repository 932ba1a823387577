package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/consensus"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// ConsensusStage reduces the classifier's anchor assessment and the two
// evaluator votes to one calibrated level. It is deterministic and makes
// no completion calls; the reduction lives in the consensus package.
type ConsensusStage struct {
	name      string
	outputKey string
	logger    Logger
	events    EventSink
}

// NewConsensusStage builds the vote-reduction stage.
func NewConsensusStage(logger Logger, events EventSink) *ConsensusStage {
	if events == nil {
		events = NopSink{}
	}
	return &ConsensusStage{
		name:      StageConsensus,
		outputKey: KeyCalibratedLevel,
		logger:    logger.Bind("stage", StageConsensus),
		events:    events,
	}
}

// Name implements Stage.
func (s *ConsensusStage) Name() string { return s.name }

// Execute implements Stage.
func (s *ConsensusStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	if snap.Initial == nil {
		return nil, NewTerminal(s.name, fmt.Errorf("no initial level assessment on context"))
	}
	if len(snap.Votes) != 2 {
		return nil, NewTerminal(s.name, fmt.Errorf("expected 2 evaluator votes, got %d", len(snap.Votes)))
	}

	// The classifier's assessment is the weighted "most likely" vote.
	anchor := envelope.EvaluatorVote{
		Role:       envelope.RoleMostLikely,
		Level:      snap.Initial.NormalizedLevel,
		Title:      snap.Initial.LevelTitle,
		Confidence: snap.Initial.Confidence,
		Rationale:  snap.Initial.Reasoning,
	}

	result, err := consensus.Resolve([3]envelope.EvaluatorVote{anchor, snap.Votes[0], snap.Votes[1]})
	if err != nil {
		return nil, NewTerminal(s.name, err)
	}
	result.Profession = snap.Initial.Profession

	s.logger.Info("consensus_resolved",
		"final_level", result.FinalLevel,
		"confidence", string(result.Confidence),
		"agreement", result.Agreement,
	)
	s.events.Emit(s.name, fmt.Sprintf("L%d (%s), %d/3 agree, confidence %s",
		result.FinalLevel, result.FinalTitle, result.Agreement, result.Confidence))

	return envelope.NewStructuredResult(s.name, result, time.Since(start)), nil
}

// Apply implements Stage.
func (s *ConsensusStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	result, ok := res.Structured.(*envelope.ConsensusResult)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	pc.Consensus = result
	pc.SetOutput(s.outputKey, result)
	return nil
}
