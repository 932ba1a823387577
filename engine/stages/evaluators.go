package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// The two deliberation evaluators run in the same parallel group, each
// against its own snapshot. They deliberately pull in opposite directions;
// the consensus stage reconciles them with the classifier's anchor vote.

type conservativeReply struct {
	Level      int     `json:"conservative_level"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type optimisticReply struct {
	Level      int     `json:"optimistic_level"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// EvaluatorStage is one deliberation perspective, identified by its vote
// role. It produces an EvaluatorVote; Apply appends it to the context.
type EvaluatorStage struct {
	base
	role envelope.VoteRole
}

// NewConservativeStage builds the skeptical evaluator.
func NewConservativeStage(model string, client CompletionClient, logger Logger, events EventSink) *EvaluatorStage {
	return &EvaluatorStage{
		base: newBase(StageConservative, KeyConservative, model, ShapeJSON, client, logger, events),
		role: envelope.RoleConservative,
	}
}

// NewOptimisticStage builds the advocating evaluator.
func NewOptimisticStage(model string, client CompletionClient, logger Logger, events EventSink) *EvaluatorStage {
	return &EvaluatorStage{
		base: newBase(StageOptimistic, KeyOptimistic, model, ShapeJSON, client, logger, events),
		role: envelope.RoleOptimistic,
	}
}

// Role returns the evaluator's vote role.
func (s *EvaluatorStage) Role() envelope.VoteRole { return s.role }

// Execute implements Stage.
func (s *EvaluatorStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	text, err := s.complete(ctx, buildEvaluatorPrompt(s.role, snap))
	if err != nil {
		return nil, s.classify(err)
	}

	vote := envelope.EvaluatorVote{Role: s.role}
	switch s.role {
	case envelope.RoleConservative:
		reply, derr := decodeStructured[conservativeReply](text)
		if derr != nil {
			return nil, NewTerminal(s.name, derr)
		}
		vote.Level = reply.Level
		vote.Title = reply.Title
		vote.Confidence = reply.Confidence
		vote.Rationale = reply.Rationale
	case envelope.RoleOptimistic:
		reply, derr := decodeStructured[optimisticReply](text)
		if derr != nil {
			return nil, NewTerminal(s.name, derr)
		}
		vote.Level = reply.Level
		vote.Title = reply.Title
		vote.Confidence = reply.Confidence
		vote.Rationale = reply.Rationale
	default:
		return nil, NewTerminal(s.name, fmt.Errorf("unsupported evaluator role %s", s.role))
	}

	if vote.Level < 1 || vote.Level > 10 {
		return nil, NewTerminal(s.name, fmt.Errorf("%s proposed level %d outside 1-10", s.role, vote.Level))
	}

	s.preview(text)
	return envelope.NewStructuredResult(s.name, &vote, time.Since(start)), nil
}

// Apply implements Stage.
func (s *EvaluatorStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	vote, ok := res.Structured.(*envelope.EvaluatorVote)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	pc.Votes = append(pc.Votes, *vote)
	pc.SetOutput(s.outputKey, vote)
	return nil
}
