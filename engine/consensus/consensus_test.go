package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

func votes(mostLikely, conservative, optimistic int) [3]envelope.EvaluatorVote {
	return [3]envelope.EvaluatorVote{
		{Role: envelope.RoleMostLikely, Level: mostLikely, Title: "ML Title", Confidence: 0.8},
		{Role: envelope.RoleConservative, Level: conservative, Title: "C Title", Confidence: 0.7},
		{Role: envelope.RoleOptimistic, Level: optimistic, Title: "O Title", Confidence: 0.7},
	}
}

func TestResolve(t *testing.T) {
	t.Run("all three agree", func(t *testing.T) {
		result, err := Resolve(votes(5, 5, 5))
		require.NoError(t, err)

		assert.Equal(t, 5, result.FinalLevel)
		assert.Equal(t, 3, result.Agreement)
		assert.Equal(t, envelope.ConfidenceHigh, result.Confidence)
	})

	t.Run("majority without the weighted vote wins", func(t *testing.T) {
		// Conservative and optimistic both say 6; the weighted
		// most-likely vote of 5 does not silence them.
		result, err := Resolve(votes(5, 6, 6))
		require.NoError(t, err)

		assert.Equal(t, 6, result.FinalLevel)
		assert.Equal(t, 2, result.Agreement)
		assert.Equal(t, envelope.ConfidenceMedium, result.Confidence)
	})

	t.Run("majority including the weighted vote wins", func(t *testing.T) {
		result, err := Resolve(votes(6, 5, 6))
		require.NoError(t, err)

		assert.Equal(t, 6, result.FinalLevel)
		assert.Equal(t, 2, result.Agreement)
		assert.Equal(t, envelope.ConfidenceMedium, result.Confidence)
	})

	t.Run("all distinct falls back to the weighted vote with low confidence", func(t *testing.T) {
		result, err := Resolve(votes(6, 4, 7))
		require.NoError(t, err)

		assert.Equal(t, 6, result.FinalLevel)
		assert.Equal(t, 1, result.Agreement)
		assert.Equal(t, envelope.ConfidenceLow, result.Confidence)
		assert.Equal(t, "ML Title", result.FinalTitle)
	})

	t.Run("final level is always one of the vote levels", func(t *testing.T) {
		cases := [][3]int{
			{5, 6, 6}, {5, 5, 6}, {4, 7, 6}, {1, 10, 5}, {3, 3, 3},
		}
		for _, c := range cases {
			result, err := Resolve(votes(c[0], c[1], c[2]))
			require.NoError(t, err)
			assert.Contains(t, c[:], result.FinalLevel,
				"final level %d must be one of votes %v", result.FinalLevel, c)
		}
	})

	t.Run("title follows the winning level", func(t *testing.T) {
		result, err := Resolve(votes(5, 6, 6))
		require.NoError(t, err)
		assert.Equal(t, "C Title", result.FinalTitle)
	})

	t.Run("vote order does not matter", func(t *testing.T) {
		shuffled := votes(5, 6, 6)
		shuffled[0], shuffled[2] = shuffled[2], shuffled[0]
		result, err := Resolve(shuffled)
		require.NoError(t, err)
		assert.Equal(t, 6, result.FinalLevel)
	})

	t.Run("votes are echoed back for explainability", func(t *testing.T) {
		in := votes(5, 4, 6)
		result, err := Resolve(in)
		require.NoError(t, err)
		assert.Equal(t, in, result.Votes)
	})
}

func TestResolveErrors(t *testing.T) {
	t.Run("level out of range", func(t *testing.T) {
		_, err := Resolve(votes(0, 5, 5))
		assert.Error(t, err)

		_, err = Resolve(votes(5, 11, 5))
		assert.Error(t, err)
	})

	t.Run("duplicate role", func(t *testing.T) {
		v := votes(5, 5, 5)
		v[1].Role = envelope.RoleMostLikely
		_, err := Resolve(v)
		assert.Error(t, err)
	})

	t.Run("missing role", func(t *testing.T) {
		v := votes(5, 5, 5)
		v[0].Role = envelope.RoleConservative
		v[1].Role = envelope.RoleOptimistic
		v[2].Role = envelope.RoleOptimistic
		_, err := Resolve(v)
		assert.Error(t, err)
	})
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 0.5, Weight(envelope.RoleMostLikely))
	assert.Equal(t, 0.25, Weight(envelope.RoleConservative))
	assert.Equal(t, 0.25, Weight(envelope.RoleOptimistic))
	assert.Equal(t, 0.0, Weight(envelope.VoteRole("bogus")))
	assert.InDelta(t, 1.0, Weight(envelope.RoleMostLikely)+Weight(envelope.RoleConservative)+Weight(envelope.RoleOptimistic), 1e-9)
}
