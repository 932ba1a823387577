// Package consensus merges the three evaluator votes into one calibrated
// level using weighted ensemble voting.
//
// Weights: the most-likely vote carries 0.5, the conservative and
// optimistic votes 0.25 each. A majority of votes on the same level wins
// outright regardless of weights; this deliberately prevents the single
// heavily-weighted vote from silencing two independent evaluators that
// agree with each other. When all three levels differ, the 0.5-weight vote
// wins by construction and confidence is reported as low.
package consensus

import (
	"fmt"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// Vote weights. The most-likely assessment counts double.
const (
	WeightMostLikely   = 0.5
	WeightConservative = 0.25
	WeightOptimistic   = 0.25
)

// Resolve reduces exactly three votes to a ConsensusResult. The final
// level is always one of the input vote levels. The votes may arrive in
// any order; roles identify them.
func Resolve(votes [3]envelope.EvaluatorVote) (*envelope.ConsensusResult, error) {
	roles := make(map[envelope.VoteRole]*envelope.EvaluatorVote, 3)
	for i := range votes {
		v := &votes[i]
		if v.Level < 1 || v.Level > 10 {
			return nil, fmt.Errorf("vote %s has level %d outside 1-10", v.Role, v.Level)
		}
		if _, dup := roles[v.Role]; dup {
			return nil, fmt.Errorf("duplicate vote role %s", v.Role)
		}
		roles[v.Role] = v
	}
	mostLikely, ok := roles[envelope.RoleMostLikely]
	if !ok {
		return nil, fmt.Errorf("missing %s vote", envelope.RoleMostLikely)
	}
	if _, ok := roles[envelope.RoleConservative]; !ok {
		return nil, fmt.Errorf("missing %s vote", envelope.RoleConservative)
	}
	if _, ok := roles[envelope.RoleOptimistic]; !ok {
		return nil, fmt.Errorf("missing %s vote", envelope.RoleOptimistic)
	}

	counts := make(map[int]int, 3)
	for i := range votes {
		counts[votes[i].Level]++
	}

	// Majority overrides weight.
	finalLevel := mostLikely.Level
	for level, n := range counts {
		if n >= 2 {
			finalLevel = level
			break
		}
	}
	agreement := counts[finalLevel]

	var confidence envelope.Confidence
	switch agreement {
	case 3:
		confidence = envelope.ConfidenceHigh
	case 2:
		confidence = envelope.ConfidenceMedium
	default:
		confidence = envelope.ConfidenceLow
	}

	finalTitle := mostLikely.Title
	for i := range votes {
		if votes[i].Level == finalLevel && votes[i].Title != "" {
			finalTitle = votes[i].Title
			break
		}
	}

	return &envelope.ConsensusResult{
		FinalLevel: finalLevel,
		FinalTitle: finalTitle,
		Confidence: confidence,
		Agreement:  agreement,
		Votes:      votes,
	}, nil
}

// Weight returns the ensemble weight for a vote role.
func Weight(role envelope.VoteRole) float64 {
	switch role {
	case envelope.RoleMostLikely:
		return WeightMostLikely
	case envelope.RoleConservative:
		return WeightConservative
	case envelope.RoleOptimistic:
		return WeightOptimistic
	}
	return 0
}
