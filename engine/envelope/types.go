// Package envelope defines the data model shared by the analysis pipeline:
// the run-owned PipelineContext accumulator, stage results, evaluator votes,
// the recommendation batch, progress events, and the final artifact.
//
// Design:
//   - One run owns one PipelineContext; it is never shared across runs.
//   - Stage outputs land in a dynamic Outputs map keyed by output key,
//     with typed fields for the records downstream stages consume.
//   - ProgressEvent is a structured record from the start; display
//     formatting is left to the consuming layer.
package envelope

import "time"

// Tier identifies one of the four fixed recommendation tiers.
type Tier string

const (
	TierExactMatch Tier = "exact_match"
	TierLevelUp    Tier = "level_up"
	TierStretch    Tier = "stretch"
	TierTrajectory Tier = "trajectory"
)

// Tiers returns all tiers in presentation order.
func Tiers() []Tier {
	return []Tier{TierExactMatch, TierLevelUp, TierStretch, TierTrajectory}
}

// VoteRole identifies which evaluator produced a vote.
type VoteRole string

const (
	RoleMostLikely   VoteRole = "most_likely"
	RoleConservative VoteRole = "conservative"
	RoleOptimistic   VoteRole = "optimistic"
)

// Confidence is the calibrated confidence label on a consensus result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RoleSpan is one employment span recovered from the resume text.
type RoleSpan struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	DurationMonths int     `json:"duration_months"`
	DurationYears  float64 `json:"duration_years"`
}

// ExperienceSummary is the precomputed years-of-experience breakdown.
// Overlapping spans are de-duplicated month by month, so TotalYears can be
// less than the sum of the individual role durations.
type ExperienceSummary struct {
	TotalYears     float64    `json:"total_years"`
	StatedYears    *int       `json:"stated_years,omitempty"`
	CareerSpan     string     `json:"career_span"`
	NumRoles       int        `json:"num_roles"`
	AvgTenureYears float64    `json:"avg_tenure_years"`
	RoleBreakdown  []RoleSpan `json:"role_breakdown"`
}

// ParsedResume is the structured output of the resume parser stage.
type ParsedResume struct {
	CurrentTitle      string   `json:"current_title"`
	CurrentCompany    string   `json:"current_company"`
	TotalYears        float64  `json:"total_yoe"`
	Skills            []string `json:"skills"`
	Education         []string `json:"education"`
	StatedInterests   []string `json:"stated_interests"`
	SideProjects      []string `json:"side_projects"`
	QualitativeTrend  string   `json:"qualitative_trend"`
	InferredDirection string   `json:"inferred_direction"`
}

// LevelAssessment is the structured output of the level classifier stage.
type LevelAssessment struct {
	Profession       string   `json:"profession"`
	NormalizedLevel  int      `json:"normalized_level"`
	LevelTitle       string   `json:"level_title"`
	EquivalentTitles []string `json:"equivalent_titles"`
	Confidence       float64  `json:"confidence"`
	Evidence         []string `json:"evidence"`
	Reasoning        string   `json:"reasoning"`
}

// EvaluatorVote is one evaluator's judgment on the candidate's level.
type EvaluatorVote struct {
	Role       VoteRole `json:"role"`
	Level      int      `json:"level"`
	Title      string   `json:"title,omitempty"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

// ConsensusResult is the reduction of three evaluator votes into one
// calibrated level. FinalLevel is always one of the three vote levels;
// consensus selects among offered opinions, it does not synthesize one.
type ConsensusResult struct {
	Profession string           `json:"profession"`
	FinalLevel int              `json:"final_level"`
	FinalTitle string           `json:"final_title"`
	Confidence Confidence       `json:"confidence"`
	Agreement  int              `json:"agreement"` // votes matching FinalLevel
	Votes      [3]EvaluatorVote `json:"votes"`
}

// JobRecommendation is one scout's finding for its tier.
type JobRecommendation struct {
	Tier       Tier     `json:"tier"`
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	SearchURL  string   `json:"search_url"`
	PostedDate string   `json:"posted_date,omitempty"`
	Location   string   `json:"location,omitempty"`
	Snippet    string   `json:"job_description_snippet,omitempty"`
	Salary     string   `json:"salary_if_visible,omitempty"`
	WhyMatches []string `json:"why_matches,omitempty"`
	FitScore   int      `json:"fit_score"`
	Degraded   bool     `json:"degraded,omitempty"`
	Caveat     string   `json:"caveat,omitempty"`
}

// RecommendationBatch holds one recommendation per tier. Tiers are
// independent: each may fail or degrade without affecting its siblings,
// and the batch always contains all four tiers.
type RecommendationBatch struct {
	ExactMatch *JobRecommendation `json:"exact_match"`
	LevelUp    *JobRecommendation `json:"level_up"`
	Stretch    *JobRecommendation `json:"stretch"`
	Trajectory *JobRecommendation `json:"trajectory"`
}

// Get returns the recommendation for a tier.
func (b *RecommendationBatch) Get(t Tier) *JobRecommendation {
	switch t {
	case TierExactMatch:
		return b.ExactMatch
	case TierLevelUp:
		return b.LevelUp
	case TierStretch:
		return b.Stretch
	case TierTrajectory:
		return b.Trajectory
	}
	return nil
}

// Set stores the recommendation for a tier.
func (b *RecommendationBatch) Set(t Tier, rec *JobRecommendation) {
	switch t {
	case TierExactMatch:
		b.ExactMatch = rec
	case TierLevelUp:
		b.LevelUp = rec
	case TierStretch:
		b.Stretch = rec
	case TierTrajectory:
		b.Trajectory = rec
	}
}

// Size returns the number of populated tiers.
func (b *RecommendationBatch) Size() int {
	n := 0
	for _, t := range Tiers() {
		if b.Get(t) != nil {
			n++
		}
	}
	return n
}

// Clone deep-copies the batch.
func (b *RecommendationBatch) Clone() *RecommendationBatch {
	if b == nil {
		return nil
	}
	out := &RecommendationBatch{}
	for _, t := range Tiers() {
		if rec := b.Get(t); rec != nil {
			c := *rec
			c.WhyMatches = append([]string(nil), rec.WhyMatches...)
			out.Set(t, &c)
		}
	}
	return out
}

// FinalArtifact is the formatted result of one run or refinement, plus
// metadata. Artifacts are immutable once stored in session history.
type FinalArtifact struct {
	SessionID string           `json:"session_id"`
	RunID     string           `json:"run_id"`
	Markdown  string           `json:"markdown"`
	Consensus *ConsensusResult `json:"consensus,omitempty"`
	ElapsedMS int              `json:"elapsed_ms"`
	CreatedAt time.Time        `json:"created_at"`
}
